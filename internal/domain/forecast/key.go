package forecast

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/FACorreiaa/couple-finance/internal/domain/recurring"
)

type keyInput struct {
	Today        string              `json:"today"`
	Options      Options             `json:"options"`
	Accounts     []recurring.Account `json:"accounts"`
	Rules        []recurring.Rule    `json:"rules"`
	Hypothetical *keyHypothetical    `json:"hypothetical,omitempty"`
}

type keyHypothetical struct {
	Kind        HypotheticalKind    `json:"kind"`
	Description string              `json:"description"`
	AmountMinor int64               `json:"amount_minor"`
	Date        string              `json:"date"`
	Frequency   recurring.Frequency `json:"frequency,omitempty"`
}

// Key returns a content hash of everything a projection depends on, including the
// hypothetical entry and today's date. Equal keys yield equal projections.
func Key(accounts []recurring.Account, rules []recurring.Rule, hyp Hypothetical, today time.Time, opts Options) string {
	in := keyInput{
		Today:    recurring.DateOf(today).Format(time.DateOnly),
		Options:  opts,
		Accounts: accounts,
		Rules:    rules,
	}
	if hyp = Canonical(hyp); hyp != nil {
		e := hyp.entry()
		kh := &keyHypothetical{
			Kind:        hyp.Kind(),
			Description: e.Description,
			AmountMinor: e.AmountMinor,
			Date:        recurring.DateOf(e.Date).Format(time.DateOnly),
		}
		if h, ok := hyp.(RecurringWhatIf); ok {
			kh.Frequency = h.Frequency
		}
		in.Hypothetical = kh
	}

	// Plain structs of strings, ints, times and uuids always marshal.
	payload, _ := json.Marshal(in)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
