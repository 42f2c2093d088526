package domain

import "fmt"

// Field names shared by validation, drafts and the account payload.
const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"

	FieldRollNumber = "rollNumber"
	FieldPhone      = "phone"
	FieldGrade      = "grade"
	FieldInviteCode = "inviteCode"
	FieldSubject    = "subject"
	FieldSchoolName = "schoolName"
	FieldMotto      = "motto"
	FieldAddress    = "address"
	FieldCity       = "city"
	FieldState      = "state"
	FieldPincode    = "pincode"
	FieldLogoRef    = "logoRef"

	FieldRole = "role"
)

// IsSecretField reports whether a field must never leave the session.
func IsSecretField(name string) bool {
	return name == FieldPassword || name == FieldConfirmPassword
}

type AccountFields struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

func (a AccountFields) Get(field string) (string, bool) {
	switch field {
	case FieldName:
		return a.Name, true
	case FieldEmail:
		return a.Email, true
	case FieldPassword:
		return a.Password, true
	case FieldConfirmPassword:
		return a.ConfirmPassword, true
	}
	return "", false
}

func (a *AccountFields) Set(field, value string) error {
	switch field {
	case FieldName:
		a.Name = value
	case FieldEmail:
		a.Email = value
	case FieldPassword:
		a.Password = value
	case FieldConfirmPassword:
		a.ConfirmPassword = value
	default:
		return fmt.Errorf("account field %q: %w", field, ErrUnknownField)
	}
	return nil
}

// Public returns the non-secret account fields.
func (a AccountFields) Public() map[string]string {
	return map[string]string{
		FieldName:  a.Name,
		FieldEmail: a.Email,
	}
}

// IsAccountField reports whether name belongs to the account phase.
func IsAccountField(name string) bool {
	_, ok := AccountFields{}.Get(name)
	return ok
}

// Profile is the role-tagged profile variant. Only the three variants below implement it.
type Profile interface {
	Role() Role
	Get(field string) (string, bool)
	Set(field, value string) error
	Fields() map[string]string
	Phone() string
	clone() Profile
}

// NewProfile returns the empty variant for role, or nil when role is not valid.
func NewProfile(role Role) Profile {
	switch role {
	case RoleStudent:
		return &StudentProfile{}
	case RoleTeacher:
		return &TeacherProfile{}
	case RoleAdmin:
		return &AdminProfile{}
	}
	return nil
}

// CloneProfile returns an independent copy of p.
func CloneProfile(p Profile) Profile {
	if p == nil {
		return nil
	}
	return p.clone()
}

// ProfileFromFields builds the variant for role, ignoring keys it does not own.
func ProfileFromFields(role Role, fields map[string]string) Profile {
	p := NewProfile(role)
	if p == nil {
		return nil
	}
	for k, v := range fields {
		_ = p.Set(k, v)
	}
	return p
}

type StudentProfile struct {
	RollNumber string
	PhoneNo    string
	Grade      string
	InviteCode string
}

func (p *StudentProfile) Role() Role    { return RoleStudent }
func (p *StudentProfile) Phone() string { return p.PhoneNo }

func (p *StudentProfile) Get(field string) (string, bool) {
	v, ok := p.Fields()[field]
	return v, ok
}

func (p *StudentProfile) Set(field, value string) error {
	switch field {
	case FieldRollNumber:
		p.RollNumber = value
	case FieldPhone:
		p.PhoneNo = value
	case FieldGrade:
		p.Grade = value
	case FieldInviteCode:
		p.InviteCode = value
	default:
		return fmt.Errorf("student field %q: %w", field, ErrUnknownField)
	}
	return nil
}

func (p *StudentProfile) Fields() map[string]string {
	return map[string]string{
		FieldRollNumber: p.RollNumber,
		FieldPhone:      p.PhoneNo,
		FieldGrade:      p.Grade,
		FieldInviteCode: p.InviteCode,
	}
}

func (p *StudentProfile) clone() Profile {
	c := *p
	return &c
}

type TeacherProfile struct {
	PhoneNo    string
	Subject    string
	InviteCode string
}

func (p *TeacherProfile) Role() Role    { return RoleTeacher }
func (p *TeacherProfile) Phone() string { return p.PhoneNo }

func (p *TeacherProfile) Get(field string) (string, bool) {
	v, ok := p.Fields()[field]
	return v, ok
}

func (p *TeacherProfile) Set(field, value string) error {
	switch field {
	case FieldPhone:
		p.PhoneNo = value
	case FieldSubject:
		p.Subject = value
	case FieldInviteCode:
		p.InviteCode = value
	default:
		return fmt.Errorf("teacher field %q: %w", field, ErrUnknownField)
	}
	return nil
}

func (p *TeacherProfile) Fields() map[string]string {
	return map[string]string{
		FieldPhone:      p.PhoneNo,
		FieldSubject:    p.Subject,
		FieldInviteCode: p.InviteCode,
	}
}

func (p *TeacherProfile) clone() Profile {
	c := *p
	return &c
}

// AdminProfile describes the school an administrator registers.
// Address, pincode, motto and logo are optional.
type AdminProfile struct {
	SchoolName string
	Motto      string
	Address    string
	City       string
	State      string
	Pincode    string
	PhoneNo    string
	LogoRef    string
}

func (p *AdminProfile) Role() Role    { return RoleAdmin }
func (p *AdminProfile) Phone() string { return p.PhoneNo }

func (p *AdminProfile) Get(field string) (string, bool) {
	v, ok := p.Fields()[field]
	return v, ok
}

func (p *AdminProfile) Set(field, value string) error {
	switch field {
	case FieldSchoolName:
		p.SchoolName = value
	case FieldMotto:
		p.Motto = value
	case FieldAddress:
		p.Address = value
	case FieldCity:
		p.City = value
	case FieldState:
		p.State = value
	case FieldPincode:
		p.Pincode = value
	case FieldPhone:
		p.PhoneNo = value
	case FieldLogoRef:
		p.LogoRef = value
	default:
		return fmt.Errorf("admin field %q: %w", field, ErrUnknownField)
	}
	return nil
}

func (p *AdminProfile) Fields() map[string]string {
	return map[string]string{
		FieldSchoolName: p.SchoolName,
		FieldMotto:      p.Motto,
		FieldAddress:    p.Address,
		FieldCity:       p.City,
		FieldState:      p.State,
		FieldPincode:    p.Pincode,
		FieldPhone:      p.PhoneNo,
		FieldLogoRef:    p.LogoRef,
	}
}

func (p *AdminProfile) clone() Profile {
	c := *p
	return &c
}
