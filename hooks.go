package bincache

// Hooks are lightweight callbacks for cache events. Implementations MUST be
// cheap and non-blocking; the facade calls them on hot paths.
type Hooks interface {
	// A live entry satisfied a Get.
	Hit(bin, cid string)

	// A Get found nothing (absent, expired, or healed away).
	Miss(bin, cid string)

	// The backend declined a write without failing (pressure, eviction).
	SetRejected(bin, cid string)

	// An undecodable entry was deleted on read.
	// reason ∈ {"value_decode"}
	SelfHeal(bin, cid, reason string)

	// An untargeted sweep ran over bin.
	Sweep(bin string)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) Hit(string, string)              {}
func (NopHooks) Miss(string, string)             {}
func (NopHooks) SetRejected(string, string)      {}
func (NopHooks) SelfHeal(string, string, string) {}
func (NopHooks) Sweep(string)                    {}
