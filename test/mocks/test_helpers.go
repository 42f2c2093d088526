package mocks

import (
	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
)

// TestCredential decodes to TestIdentity with DecoderWithTestIdentity.
const TestCredential = "google-credential"

// TestIdentity is the identity behind TestCredential.
func TestIdentity() domain.ExternalIdentity {
	return domain.ExternalIdentity{
		Name:      "Asha Verma",
		Email:     "asha@example.com",
		SubjectID: "google-sub-42",
	}
}

// DecoderWithTestIdentity returns a decoder that knows TestCredential.
func DecoderWithTestIdentity() *MockCredentialDecoder {
	d := NewMockCredentialDecoder()
	d.Identities[TestCredential] = TestIdentity()
	return d
}

// ValidAccount returns account fields that pass validation.
func ValidAccount() map[string]string {
	return map[string]string{
		domain.FieldName:            "Ravi Kumar",
		domain.FieldEmail:           "ravi@example.com",
		domain.FieldPassword:        "Secret123!",
		domain.FieldConfirmPassword: "Secret123!",
	}
}

// ValidProfile returns profile fields that pass validation for role.
func ValidProfile(role domain.Role) map[string]string {
	switch role {
	case domain.RoleStudent:
		return map[string]string{
			domain.FieldRollNumber: "R-17",
			domain.FieldPhone:      "9876543210",
			domain.FieldGrade:      "Grade 7",
			domain.FieldInviteCode: "INV-001",
		}
	case domain.RoleTeacher:
		return map[string]string{
			domain.FieldPhone:      "9876543210",
			domain.FieldSubject:    "Physics",
			domain.FieldInviteCode: "INV-002",
		}
	case domain.RoleAdmin:
		return map[string]string{
			domain.FieldSchoolName: "Green Valley School",
			domain.FieldMotto:      "Learn and grow",
			domain.FieldAddress:    "12 MG Road",
			domain.FieldCity:       "Pune",
			domain.FieldState:      "Maharashtra",
			domain.FieldPincode:    "411001",
			domain.FieldPhone:      "9876543210",
		}
	}
	return nil
}
