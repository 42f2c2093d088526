package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProfile_Variants(t *testing.T) {
	assert.IsType(t, &StudentProfile{}, NewProfile(RoleStudent))
	assert.IsType(t, &TeacherProfile{}, NewProfile(RoleTeacher))
	assert.IsType(t, &AdminProfile{}, NewProfile(RoleAdmin))
	assert.Nil(t, NewProfile(RoleUnset))
}

func TestProfile_RejectsForeignFields(t *testing.T) {
	p := NewProfile(RoleTeacher)
	err := p.Set(FieldGrade, "Grade 4")
	assert.True(t, errors.Is(err, ErrUnknownField))

	require.NoError(t, p.Set(FieldSubject, "Art"))
	v, ok := p.Get(FieldSubject)
	assert.True(t, ok)
	assert.Equal(t, "Art", v)
}

func TestProfileFromFields_IgnoresOtherRoles(t *testing.T) {
	p := ProfileFromFields(RoleStudent, map[string]string{
		FieldRollNumber: "12",
		FieldSchoolName: "ignored",
		FieldName:       "ignored",
	})
	assert.Equal(t, "12", p.Fields()[FieldRollNumber])
	assert.NotContains(t, p.Fields(), FieldSchoolName)
}

func TestCloneProfile_IsIndependent(t *testing.T) {
	p := NewProfile(RoleAdmin)
	require.NoError(t, p.Set(FieldCity, "Pune"))
	c := CloneProfile(p)
	require.NoError(t, c.Set(FieldCity, "Delhi"))

	v, _ := p.Get(FieldCity)
	assert.Equal(t, "Pune", v)
}

func TestAccountFields_Public(t *testing.T) {
	a := AccountFields{Name: "A", Email: "a@b.co", Password: "x", ConfirmPassword: "x"}
	assert.Equal(t, map[string]string{FieldName: "A", FieldEmail: "a@b.co"}, a.Public())
	assert.True(t, IsAccountField(FieldConfirmPassword))
	assert.False(t, IsAccountField(FieldPhone))
}

func TestErrorMap_Visible(t *testing.T) {
	m := ErrorMap{FieldName: "Name is required", FieldEmail: "Email is required"}
	v := m.Visible(map[string]bool{FieldEmail: true})
	assert.Equal(t, ErrorMap{FieldEmail: "Email is required"}, v)
	assert.Equal(t, []string{FieldEmail, FieldName}, m.Keys())
}

func TestCreationError_UserMessage(t *testing.T) {
	invite := &CreationError{Code: CreationInviteInvalid}
	assert.Contains(t, invite.UserMessage(), "invite code")

	rejected := &CreationError{Code: CreationRejected, Message: "Roll number already taken"}
	assert.Equal(t, "Roll number already taken", rejected.UserMessage())

	unknown := &CreationError{Code: "SOMETHING"}
	assert.Contains(t, unknown.UserMessage(), "try again")
}
