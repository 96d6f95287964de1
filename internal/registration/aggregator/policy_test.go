package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"checkpoint/internal/recognition"
	"checkpoint/pkg/testutil"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	testutil.Given(t, "an identity result", func(t *testing.T) {
		testutil.Then(t, "the success flag alone is enough", func(t *testing.T) {
			assert.True(t, p.Identity.Satisfied(&recognition.Result{Success: true}))
		})
		testutil.Then(t, "any single extracted field is enough", func(t *testing.T) {
			for _, field := range []string{recognition.FieldIDNumber, recognition.FieldFirstName, recognition.FieldLastName} {
				res := &recognition.Result{Fields: map[string]string{field: "x"}}
				assert.True(t, p.Identity.Satisfied(res), field)
			}
		})
		testutil.Then(t, "blank fields without the flag fail", func(t *testing.T) {
			res := &recognition.Result{Fields: map[string]string{recognition.FieldIDNumber: "  "}}
			assert.False(t, p.Identity.Satisfied(res))
		})
		testutil.Then(t, "the plate field does not count for identity", func(t *testing.T) {
			res := &recognition.Result{Fields: map[string]string{recognition.FieldPlateNumber: "P1"}}
			assert.False(t, p.Identity.Satisfied(res))
		})
	})

	testutil.Given(t, "both sides", func(t *testing.T) {
		testutil.When(t, "each side passes", func(t *testing.T) {
			v := p.Evaluate(
				&recognition.Result{Success: true},
				&recognition.Result{Fields: map[string]string{recognition.FieldPlateNumber: "ABC123"}},
			)
			testutil.Then(t, "the verdict succeeds", func(t *testing.T) {
				assert.True(t, v.Success())
			})
		})
		testutil.When(t, "a side is missing", func(t *testing.T) {
			v := p.Evaluate(&recognition.Result{Success: true}, nil)
			testutil.Then(t, "the verdict fails", func(t *testing.T) {
				assert.True(t, v.IdentityOK)
				assert.False(t, v.PlateOK)
				assert.False(t, v.Success())
			})
		})
	})
}

func TestDirectionTimestampID(t *testing.T) {
	assert.Equal(t, "ENTRY-0", DirectionTimestampID("entry", zeroEpoch()))
}

func zeroEpoch() time.Time {
	return time.Unix(0, 0)
}
