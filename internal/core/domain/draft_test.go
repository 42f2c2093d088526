package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDraft_Sanitized(t *testing.T) {
	d := Draft{
		Role:  RoleStudent,
		Phase: PhaseProfile,
		FormData: map[string]string{
			FieldName:            "Ravi",
			FieldPassword:        "Secret123!",
			FieldConfirmPassword: "Secret123!",
			FieldGrade:           "Grade 3",
		},
	}

	clean := d.Sanitized()
	assert.NotContains(t, clean.FormData, FieldPassword)
	assert.NotContains(t, clean.FormData, FieldConfirmPassword)
	assert.Equal(t, "Ravi", clean.FormData[FieldName])
	assert.Contains(t, d.FormData, FieldPassword, "original is left untouched")
}

func TestDraft_Expired(t *testing.T) {
	saved := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	d := Draft{SavedAt: saved}

	assert.False(t, d.Expired(saved.Add(DraftTTL), DraftTTL), "exactly at the TTL is still live")
	assert.True(t, d.Expired(saved.Add(DraftTTL+time.Second), DraftTTL))
	assert.True(t, d.Expired(saved.Add(25*time.Hour), DraftTTL))
}

func TestDraft_WellFormed(t *testing.T) {
	ok := Draft{Role: RoleAdmin, Phase: PhaseAccount, FormData: map[string]string{}, SavedAt: time.Now()}
	assert.True(t, ok.WellFormed())

	noRole := ok
	noRole.Role = RoleUnset
	assert.False(t, noRole.WellFormed())

	badPhase := ok
	badPhase.Phase = "REVIEW"
	assert.False(t, badPhase.WellFormed())

	noTime := ok
	noTime.SavedAt = time.Time{}
	assert.False(t, noTime.WellFormed())
}
