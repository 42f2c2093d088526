package validation

import (
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
)

func validAccount() domain.AccountFields {
	return domain.AccountFields{
		Name:            "Ravi Kumar",
		Email:           "ravi@example.com",
		Password:        "Secret123!",
		ConfirmPassword: "Secret123!",
	}
}

func TestValidateAccount(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*domain.AccountFields)
		linked   bool
		wantKeys []string
	}{
		{name: "valid", mutate: func(*domain.AccountFields) {}},
		{
			name:     "empty_form_reports_every_field",
			mutate:   func(a *domain.AccountFields) { *a = domain.AccountFields{} },
			wantKeys: []string{domain.FieldConfirmPassword, domain.FieldEmail, domain.FieldName, domain.FieldPassword},
		},
		{
			name:     "name_too_short",
			mutate:   func(a *domain.AccountFields) { a.Name = " R " },
			wantKeys: []string{domain.FieldName},
		},
		{
			name:     "email_without_tld",
			mutate:   func(a *domain.AccountFields) { a.Email = "ravi@example" },
			wantKeys: []string{domain.FieldEmail},
		},
		{
			name:     "password_too_short",
			mutate:   func(a *domain.AccountFields) { a.Password, a.ConfirmPassword = "Ab1!", "Ab1!" },
			wantKeys: []string{domain.FieldPassword},
		},
		{
			name:     "passwords_differ",
			mutate:   func(a *domain.AccountFields) { a.ConfirmPassword = "Secret123?" },
			wantKeys: []string{domain.FieldConfirmPassword},
		},
		{
			name:   "linked_identity_skips_passwords",
			mutate: func(a *domain.AccountFields) { a.Password, a.ConfirmPassword = "", "" },
			linked: true,
		},
		{
			name:     "linked_identity_still_checks_email",
			mutate:   func(a *domain.AccountFields) { a.Password, a.Email = "", "" },
			linked:   true,
			wantKeys: []string{domain.FieldEmail},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAccount()
			tt.mutate(&a)
			errs := ValidateAccount(a, tt.linked)
			if len(tt.wantKeys) == 0 {
				assert.False(t, errs.HasErrors(), "unexpected errors: %v", errs)
				return
			}
			assert.Equal(t, tt.wantKeys, errs.Keys())
		})
	}
}

// Random account combinations must report an error for a field exactly when
// that field breaks its rule.
func TestValidateAccount_RandomCombinations(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	names := []string{"", "A", "Al", "  Bo  ", "Priya Shah"}
	emails := []string{"", "x", "a@b", "a@b.", "a@b.co", "first.last@school.edu.in"}
	passwords := []string{"", "short", "12345678", "Secret123!", "ÄÖÜäöüßé"}

	for i := 0; i < 500; i++ {
		a := domain.AccountFields{
			Name:     names[rng.Intn(len(names))],
			Email:    emails[rng.Intn(len(emails))],
			Password: passwords[rng.Intn(len(passwords))],
		}
		if rng.Intn(2) == 0 {
			a.ConfirmPassword = a.Password
		} else {
			a.ConfirmPassword = passwords[rng.Intn(len(passwords))]
		}
		linked := rng.Intn(4) == 0

		errs := ValidateAccount(a, linked)

		assert.Equal(t, len([]rune(strings.TrimSpace(a.Name))) < MinNameLength, errs.Has(domain.FieldName), "name %q", a.Name)
		assert.Equal(t, !IsEmail(a.Email), errs.Has(domain.FieldEmail), "email %q", a.Email)
		if linked {
			assert.False(t, errs.Has(domain.FieldPassword))
			assert.False(t, errs.Has(domain.FieldConfirmPassword))
			continue
		}
		assert.Equal(t, len([]rune(a.Password)) < MinPasswordLength, errs.Has(domain.FieldPassword), "password %q", a.Password)
		assert.Equal(t, a.ConfirmPassword == "" || a.ConfirmPassword != a.Password, errs.Has(domain.FieldConfirmPassword))
	}
}

type sample struct {
	value string
	ok    bool
}

func pick(rng *rand.Rand, from []sample) sample {
	return from[rng.Intn(len(from))]
}

func TestValidateProfile_RandomCombinations(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	phones := []sample{
		{"", false}, {"   ", false}, {"12345", false}, {"abcdefghij", false},
		{"+91 98765 43210", false}, {"98765 43210", true}, {"987-654-3210", true}, {"9876543210", true},
	}
	grades := []sample{{"", false}, {"Grade 13", false}, {"grade 7", false}, {"Grade 7", true}, {" Grade 12 ", true}}
	subjects := []sample{{"", false}, {"Astrology", false}, {"physics", false}, {"Physics", true}, {" Art ", true}}
	text := []sample{{"", false}, {"  ", false}, {"x", true}, {"INV-001", true}}

	for i := 0; i < 600; i++ {
		var profile domain.Profile
		var want []string
		expect := func(field string, s sample) {
			if !s.ok {
				want = append(want, field)
			}
		}

		var role domain.Role
		switch rng.Intn(3) {
		case 0:
			role = domain.RoleStudent
			roll, phone, grade, invite := pick(rng, text), pick(rng, phones), pick(rng, grades), pick(rng, text)
			profile = &domain.StudentProfile{RollNumber: roll.value, PhoneNo: phone.value, Grade: grade.value, InviteCode: invite.value}
			expect(domain.FieldRollNumber, roll)
			expect(domain.FieldPhone, phone)
			expect(domain.FieldGrade, grade)
			expect(domain.FieldInviteCode, invite)
		case 1:
			role = domain.RoleTeacher
			phone, subject, invite := pick(rng, phones), pick(rng, subjects), pick(rng, text)
			profile = &domain.TeacherProfile{PhoneNo: phone.value, Subject: subject.value, InviteCode: invite.value}
			expect(domain.FieldPhone, phone)
			expect(domain.FieldSubject, subject)
			expect(domain.FieldInviteCode, invite)
		default:
			role = domain.RoleAdmin
			school, city, state := pick(rng, text), pick(rng, text), pick(rng, text)
			profile = &domain.AdminProfile{
				SchoolName: school.value,
				City:       city.value,
				State:      state.value,
				PhoneNo:    pick(rng, phones).value,
				Motto:      pick(rng, text).value,
				Pincode:    pick(rng, text).value,
			}
			expect(domain.FieldSchoolName, school)
			expect(domain.FieldCity, city)
			expect(domain.FieldState, state)
		}

		sort.Strings(want)
		if want == nil {
			want = []string{}
		}
		assert.Equal(t, want, ValidateProfile(role, profile).Keys(), "%s %+v", role, profile)
	}
}

func TestValidateProfile(t *testing.T) {
	student := &domain.StudentProfile{RollNumber: "17", PhoneNo: "98765 43210", Grade: "Grade 7", InviteCode: "INV"}
	teacher := &domain.TeacherProfile{PhoneNo: "+91 (987) 654-3210", Subject: "Physics", InviteCode: "INV"}
	admin := &domain.AdminProfile{SchoolName: "GVS", City: "Pune", State: "MH"}

	assert.False(t, ValidateProfile(domain.RoleStudent, student).HasErrors())
	assert.True(t, ValidateProfile(domain.RoleTeacher, teacher).Has(domain.FieldPhone), "12 digits after normalisation")
	assert.False(t, ValidateProfile(domain.RoleAdmin, admin).HasErrors())

	teacher.PhoneNo = "987-654-3210"
	assert.False(t, ValidateProfile(domain.RoleTeacher, teacher).HasErrors())

	teacher.Subject = "Astrology"
	assert.Equal(t, []string{domain.FieldSubject}, ValidateProfile(domain.RoleTeacher, teacher).Keys())

	student.Grade = "Grade 13"
	assert.Equal(t, "Select a grade from the list", ValidateProfile(domain.RoleStudent, student)[domain.FieldGrade])
}

func TestValidateProfile_EmptyVariants(t *testing.T) {
	tests := []struct {
		role domain.Role
		want []string
	}{
		{domain.RoleStudent, []string{domain.FieldGrade, domain.FieldInviteCode, domain.FieldPhone, domain.FieldRollNumber}},
		{domain.RoleTeacher, []string{domain.FieldInviteCode, domain.FieldPhone, domain.FieldSubject}},
		{domain.RoleAdmin, []string{domain.FieldCity, domain.FieldSchoolName, domain.FieldState}},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateProfile(tt.role, nil).Keys())
			assert.Equal(t, tt.want, ValidateProfile(tt.role, domain.NewProfile(tt.role)).Keys())
		})
	}
}

func TestValidateProfile_MismatchedVariantIsTreatedAsEmpty(t *testing.T) {
	admin := &domain.AdminProfile{SchoolName: "GVS", City: "Pune", State: "MH"}
	errs := ValidateProfile(domain.RoleTeacher, admin)
	assert.True(t, errs.Has(domain.FieldSubject))
}

func TestValidateProfile_NoRole(t *testing.T) {
	errs := ValidateProfile(domain.RoleUnset, nil)
	assert.Equal(t, []string{domain.FieldRole}, errs.Keys())
}

func TestGradesAndSubjects(t *testing.T) {
	assert.Len(t, Grades(), 12)
	assert.Equal(t, "Grade 1", Grades()[0])
	assert.Len(t, Subjects(), 12)
	assert.True(t, IsSubject("Computer Science"))
	assert.False(t, IsGrade("grade 1"))

	g := Grades()
	g[0] = "mutated"
	assert.Equal(t, "Grade 1", Grades()[0], "callers get a copy")
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "9876543210", NormalizePhone("(987) 654-3210"))
	assert.Equal(t, "", NormalizePhone("phone"))
}
