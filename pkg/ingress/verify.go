// pkg/ingress/verify.go
package ingress

import (
	"fmt"

	"github.com/refdata-io/table-ingress/pkg/model"
)

// Violation is one broken post-run invariant
type Violation struct {
	Check  string
	Detail string
}

func (v Violation) String() string {
	return v.Check + ": " + v.Detail
}

// VerifyUniqueKeys asserts all accepted rows carry unique natural keys.
// A violation here means the duplicate policy was bypassed somewhere.
func VerifyUniqueKeys(accepted []model.CanonicalRecord) []Violation {
	seen := make(map[string]int, len(accepted))
	var violations []Violation
	for _, rec := range accepted {
		if prior, ok := seen[rec.Key]; ok {
			violations = append(violations, Violation{
				Check:  "unique-keys",
				Detail: fmt.Sprintf("key %q appears on lines %d and %d", rec.Key, prior, rec.Line),
			})
			continue
		}
		seen[rec.Key] = rec.Line
	}
	return violations
}

// VerifySorted asserts the accepted rows are in ascending natural-key
// order, the stable diffable artifact the finalizer promises.
func VerifySorted(accepted []model.CanonicalRecord) []Violation {
	var violations []Violation
	for i := 1; i < len(accepted); i++ {
		if accepted[i-1].Key > accepted[i].Key {
			violations = append(violations, Violation{
				Check:  "sorted-output",
				Detail: fmt.Sprintf("key %q precedes %q", accepted[i-1].Key, accepted[i].Key),
			})
		}
	}
	return violations
}

// VerifyZeroReject asserts a deliberately clean fixture produced no
// quarantined rows; any nonzero count is a regression.
func VerifyZeroReject(result *Result) []Violation {
	if len(result.Quarantined) == 0 {
		return nil
	}
	return []Violation{{
		Check:  "zero-reject",
		Detail: fmt.Sprintf("clean fixture quarantined %d row(s), first: %s",
			len(result.Quarantined), result.Quarantined[0].String()),
	}}
}

// VerifyExplosionParity asserts resolved rows plus quarantined names equal
// the total candidate names across the batch; a mismatch means a name was
// dropped or double-counted somewhere in the resolution stage.
func VerifyExplosionParity(totalNames, resolved, quarantined int) []Violation {
	if resolved+quarantined == totalNames {
		return nil
	}
	return []Violation{{
		Check:  "explosion-parity",
		Detail: fmt.Sprintf("resolved %d + quarantined %d != total names %d",
			resolved, quarantined, totalNames),
	}}
}
