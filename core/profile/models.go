package profile

import (
	"time"

	"github.com/simagang/simagang/core"
)

// VerificationStatus of a student or company profile. Only admins move it out of pending.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

func (s VerificationStatus) IsValid() bool {
	switch s {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	}
	return false
}

// Kind is the kind of profile that goes through verification.
type Kind string

const (
	KindStudent Kind = "student"
	KindCompany Kind = "company"
)

func (k Kind) entity() string { return string(k) + " profile" }

type StudentProfile struct {
	UserID             string             `json:"user_id"`
	Name               string             `json:"name"`
	Email              string             `json:"email"`
	NISN               string             `json:"nisn"`
	NIS                string             `json:"nis"`
	BirthDate          core.Date          `json:"birth_date"`
	Gender             string             `json:"gender"`
	Address            string             `json:"address"`
	Phone              string             `json:"phone"`
	Major              string             `json:"major"`
	ClassName          string             `json:"class_name"`
	GraduationYear     *int               `json:"graduation_year"`
	PhotoFile          string             `json:"photo_file"`
	CVFile             string             `json:"cv_file"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	VerificationRemark string             `json:"verification_remark"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

type CompanyProfile struct {
	UserID             string             `json:"user_id"`
	Email              string             `json:"email"`
	CompanyName        string             `json:"company_name"`
	BusinessField      string             `json:"business_field"`
	Address            string             `json:"address"`
	City               string             `json:"city"`
	Province           string             `json:"province"`
	Phone              string             `json:"phone"`
	Website            string             `json:"website"`
	Description        string             `json:"description"`
	LogoFile           string             `json:"logo_file"`
	PICName            string             `json:"pic_name"`
	PICPosition        string             `json:"pic_position"`
	PICPhone           string             `json:"pic_phone"`
	PICEmail           string             `json:"pic_email"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	VerificationRemark string             `json:"verification_remark"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

type TeacherProfile struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	NIP       string    `json:"nip"`
	Subject   string    `json:"subject"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StudentInput is what a student may write on their own profile.
type StudentInput struct {
	NISN           string    `json:"nisn" yaml:"nisn" validate:"required,numeric,len=10"`
	NIS            string    `json:"nis" yaml:"nis" validate:"omitempty,numeric"`
	BirthDate      core.Date `json:"birth_date" yaml:"birth_date"`
	Gender         string    `json:"gender" yaml:"gender" validate:"omitempty,oneof=L P"`
	Address        string    `json:"address" yaml:"address"`
	Phone          string    `json:"phone" yaml:"phone" validate:"omitempty,phone"`
	Major          string    `json:"major" yaml:"major" validate:"required"`
	ClassName      string    `json:"class_name" yaml:"class_name"`
	GraduationYear *int      `json:"graduation_year" yaml:"graduation_year" validate:"omitempty,min=2000,max=2100"`
	PhotoFile      string    `json:"photo_file" yaml:"photo_file"`
	CVFile         string    `json:"cv_file" yaml:"cv_file"`
}

func (in *StudentInput) Clean() {
	in.NISN = core.CleanString(in.NISN)
	in.NIS = core.CleanString(in.NIS)
	in.Gender = core.CleanString(in.Gender)
	in.Address = core.CleanString(in.Address)
	in.Phone = core.CleanString(in.Phone)
	in.Major = core.CleanString(in.Major)
	in.ClassName = core.CleanString(in.ClassName)
}

// CompanyInput is what a company may write on its own profile.
type CompanyInput struct {
	CompanyName   string `json:"company_name" yaml:"company_name" validate:"required"`
	BusinessField string `json:"business_field" yaml:"business_field"`
	Address       string `json:"address" yaml:"address"`
	City          string `json:"city" yaml:"city"`
	Province      string `json:"province" yaml:"province"`
	Phone         string `json:"phone" yaml:"phone" validate:"omitempty,phone"`
	Website       string `json:"website" yaml:"website" validate:"omitempty,url"`
	Description   string `json:"description" yaml:"description"`
	LogoFile      string `json:"logo_file" yaml:"logo_file"`
	PICName       string `json:"pic_name" yaml:"pic_name"`
	PICPosition   string `json:"pic_position" yaml:"pic_position"`
	PICPhone      string `json:"pic_phone" yaml:"pic_phone" validate:"omitempty,phone"`
	PICEmail      string `json:"pic_email" yaml:"pic_email" validate:"omitempty,email"`
}

func (in *CompanyInput) Clean() {
	in.CompanyName = core.CleanString(in.CompanyName)
	in.BusinessField = core.CleanString(in.BusinessField)
	in.City = core.CleanString(in.City)
	in.Province = core.CleanString(in.Province)
	in.Phone = core.CleanString(in.Phone)
	in.Website = core.CleanString(in.Website)
	in.PICName = core.CleanString(in.PICName)
	in.PICPhone = core.CleanString(in.PICPhone)
	in.PICEmail = core.CleanString(in.PICEmail, true /* lower */)
}

type TeacherInput struct {
	NIP     string `json:"nip" yaml:"nip" validate:"omitempty,numeric"`
	Subject string `json:"subject" yaml:"subject"`
	Phone   string `json:"phone" yaml:"phone" validate:"omitempty,phone"`
}

func (in *TeacherInput) Clean() {
	in.NIP = core.CleanString(in.NIP)
	in.Subject = core.CleanString(in.Subject)
	in.Phone = core.CleanString(in.Phone)
}

type QueryFilter struct {
	Search             string             `query:"search"`
	VerificationStatus VerificationStatus `query:"verification_status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type Rejection struct {
	Reason string `json:"reason"`
}
