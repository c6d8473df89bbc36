package work

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classboard/core"
)

type (
	Subject string
	Type    string
)

// Subjects
const (
	SubjectMath            Subject = "Math"
	SubjectScience         Subject = "Science"
	SubjectHindi           Subject = "Hindi"
	SubjectEnglish         Subject = "English"
	SubjectSanskrit        Subject = "Sanskrit"
	SubjectSocialScience   Subject = "Social Science"
	SubjectArt             Subject = "Art"
	SubjectVocation        Subject = "Vocation"
	SubjectDigitalLiteracy Subject = "Digital Literacy"
	SubjectSports          Subject = "Sports"
)

// Work types
const (
	TypeHomework  Type = "Homework"
	TypeClasswork Type = "Classwork"
)

// All is the filter sentinel meaning "no constraint".
const All = "All"

var (
	Subjects = []Subject{
		SubjectMath, SubjectScience, SubjectHindi, SubjectEnglish, SubjectSanskrit,
		SubjectSocialScience, SubjectArt, SubjectVocation, SubjectDigitalLiteracy, SubjectSports,
	}
	Types = []Type{TypeHomework, TypeClasswork}

	// AllowedMimeTypes are the only attachment media types accepted at upload time.
	AllowedMimeTypes = []string{"image/jpeg", "image/jpg", "image/png", "application/pdf"}
)

func (s Subject) Valid() bool {
	for _, sub := range Subjects {
		if s == sub {
			return true
		}
	}
	return false
}

func (t Type) Valid() bool {
	return t == TypeHomework || t == TypeClasswork
}

// File is a work item attachment. URL is either an embedded data URL or a remote address.
type File struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

func (f File) IsImage() bool { return strings.HasPrefix(f.MimeType, "image/") }
func (f File) IsPDF() bool   { return strings.Contains(f.MimeType, "pdf") }

// Item is a homework or classwork record.
type Item struct {
	ID          string  `json:"id"`
	Subject     Subject `json:"subject"`
	Type        Type    `json:"type"`
	Date        string  `json:"date"` // YYYY-MM-DD
	Description string  `json:"description,omitempty"`
	Files       []File  `json:"files,omitempty"`
	CreatedAt   int64   `json:"created_at"` // unix millis
}

// Month returns the "YYYY-MM" prefix of the item date.
func (it Item) Month() string {
	if len(it.Date) < 7 {
		return it.Date
	}
	return it.Date[:7]
}

// Upload is an attachment as received from the uploader, before it is made storable.
type Upload struct {
	Name     string
	MimeType string
	Data     []byte
}

// IsAllowedMimeType reports whether an attachment of media type mt may be uploaded.
func IsAllowedMimeType(mt string) bool {
	mt = strings.ToLower(strings.TrimSpace(strings.SplitN(mt, ";", 2)[0]))
	for _, a := range AllowedMimeTypes {
		if mt == a {
			return true
		}
	}
	return false
}

// NewItem contains information needed to create a new Item.
type NewItem struct {
	Subject     Subject  `json:"subject" form:"subject" validate:"required,subject"`
	Type        Type     `json:"type" form:"type" validate:"required,worktype"`
	Date        string   `json:"date" form:"date" validate:"required,calendardate"`
	Description string   `json:"description" form:"description"`
	Uploads     []Upload `json:"-" form:"-"`
}

func (ni *NewItem) Validate(validate *validator.Validate) error {
	ni.Subject = Subject(core.CleanString(string(ni.Subject)))
	ni.Type = Type(core.CleanString(string(ni.Type)))
	ni.Date = core.CleanString(ni.Date)
	if strings.TrimSpace(ni.Description) == "" {
		ni.Description = ""
	}
	if err := validate.Struct(ni); err != nil {
		return err
	}
	return ValidateUploads(ni.Uploads)
}

// ValidateUploads rejects any attachment whose media type is not allowed.
func ValidateUploads(uploads []Upload) error {
	for _, u := range uploads {
		if !IsAllowedMimeType(u.MimeType) {
			return core.NewFieldError("files", "Only JPG, JPEG, PNG, or PDF allowed")
		}
	}
	return nil
}

// UpdateItem defines what information may be provided to modify an existing Item.
// Nil fields are left untouched.
type UpdateItem struct {
	Subject     *Subject `json:"subject" validate:"omitempty,subject"`
	Type        *Type    `json:"type" validate:"omitempty,worktype"`
	Date        *string  `json:"date" validate:"omitempty,calendardate"`
	Description *string  `json:"description"`
	Files       *[]File  `json:"files"`
}

func (uu *UpdateItem) Validate(validate *validator.Validate) error {
	if err := validate.Struct(uu); err != nil {
		return err
	}
	if uu.Files != nil {
		for _, f := range *uu.Files {
			if !IsAllowedMimeType(f.MimeType) {
				return core.NewFieldError("files", "Only JPG, JPEG, PNG, or PDF allowed")
			}
		}
	}
	return nil
}

// Apply returns a copy of it with the set fields of uu.
func (uu UpdateItem) Apply(it Item) Item {
	if uu.Subject != nil {
		it.Subject = *uu.Subject
	}
	if uu.Type != nil {
		it.Type = *uu.Type
	}
	if uu.Date != nil {
		it.Date = core.CleanString(*uu.Date)
	}
	if uu.Description != nil {
		if strings.TrimSpace(*uu.Description) == "" {
			it.Description = ""
		} else {
			it.Description = *uu.Description
		}
	}
	if uu.Files != nil {
		if len(*uu.Files) == 0 {
			it.Files = nil
		} else {
			it.Files = append([]File(nil), *uu.Files...)
		}
	}
	return it
}
