// Package validation maps signup field sets to field-keyed error messages.
// Every function is pure; callers re-run it on each change and decide which
// errors to show.
package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
)

const (
	MinNameLength     = 2
	MinPasswordLength = 8
	PhoneDigits       = 10
)

var grades = []string{
	"Grade 1", "Grade 2", "Grade 3", "Grade 4", "Grade 5", "Grade 6",
	"Grade 7", "Grade 8", "Grade 9", "Grade 10", "Grade 11", "Grade 12",
}

var subjects = []string{
	"Mathematics", "Physics", "Chemistry", "Biology", "English", "Hindi",
	"History", "Geography", "Computer Science", "Economics", "Physical Education", "Art",
}

// Grades lists the accepted student grades in display order.
func Grades() []string { return append([]string(nil), grades...) }

// Subjects lists the accepted teaching subjects in display order.
func Subjects() []string { return append([]string(nil), subjects...) }

func IsGrade(s string) bool   { return contains(grades, s) }
func IsSubject(s string) bool { return contains(subjects, s) }

// ValidateAccount checks the account phase. Password fields are skipped entirely
// when an external identity is linked.
func ValidateAccount(fields domain.AccountFields, identityLinked bool) domain.ErrorMap {
	errs := domain.ErrorMap{}

	name := strings.TrimSpace(fields.Name)
	switch {
	case name == "":
		errs[domain.FieldName] = "Name is required"
	case utf8.RuneCountInString(name) < MinNameLength:
		errs[domain.FieldName] = "Name must be at least 2 characters"
	}

	email := strings.TrimSpace(fields.Email)
	switch {
	case email == "":
		errs[domain.FieldEmail] = "Email is required"
	case !IsEmail(email):
		errs[domain.FieldEmail] = "Enter a valid email address"
	}

	if identityLinked {
		return errs
	}

	switch {
	case fields.Password == "":
		errs[domain.FieldPassword] = "Password is required"
	case utf8.RuneCountInString(fields.Password) < MinPasswordLength:
		errs[domain.FieldPassword] = "Password must be at least 8 characters"
	}

	switch {
	case fields.ConfirmPassword == "":
		errs[domain.FieldConfirmPassword] = "Confirm your password"
	case fields.ConfirmPassword != fields.Password:
		errs[domain.FieldConfirmPassword] = "Passwords do not match"
	}

	return errs
}

// ValidateProfile checks the role-specific profile phase.
func ValidateProfile(role domain.Role, profile domain.Profile) domain.ErrorMap {
	errs := domain.ErrorMap{}
	if !role.IsValid() {
		errs[domain.FieldRole] = "Select a role"
		return errs
	}
	if profile == nil || profile.Role() != role {
		profile = domain.NewProfile(role)
	}

	get := func(field string) string {
		v, _ := profile.Get(field)
		return strings.TrimSpace(v)
	}
	required := func(field, msg string) {
		if get(field) == "" {
			errs[field] = msg
		}
	}

	switch role {
	case domain.RoleStudent:
		required(domain.FieldRollNumber, "Roll number is required")
		checkPhone(errs, get(domain.FieldPhone))
		switch g := get(domain.FieldGrade); {
		case g == "":
			errs[domain.FieldGrade] = "Grade is required"
		case !IsGrade(g):
			errs[domain.FieldGrade] = "Select a grade from the list"
		}
		required(domain.FieldInviteCode, "Invite code is required")
	case domain.RoleTeacher:
		checkPhone(errs, get(domain.FieldPhone))
		switch s := get(domain.FieldSubject); {
		case s == "":
			errs[domain.FieldSubject] = "Subject is required"
		case !IsSubject(s):
			errs[domain.FieldSubject] = "Select a subject from the list"
		}
		required(domain.FieldInviteCode, "Invite code is required")
	case domain.RoleAdmin:
		required(domain.FieldSchoolName, "School name is required")
		required(domain.FieldCity, "City is required")
		required(domain.FieldState, "State is required")
	}
	return errs
}

// IsEmail accepts the local@domain.tld shape.
func IsEmail(s string) bool {
	if !govalidator.IsEmail(s) {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	host := s[at+1:]
	dot := strings.LastIndexByte(host, '.')
	return dot > 0 && dot < len(host)-1
}

// NormalizePhone strips every non-digit character.
func NormalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func checkPhone(errs domain.ErrorMap, phone string) {
	digits := NormalizePhone(phone)
	switch {
	case phone == "":
		errs[domain.FieldPhone] = "Phone number is required"
	case len(digits) != PhoneDigits || !govalidator.IsNumeric(digits):
		errs[domain.FieldPhone] = "Phone number must have exactly 10 digits"
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
