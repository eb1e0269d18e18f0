package teacher

import (
	"github.com/go-playground/validator/v10"

	"github.com/sarang-youth/mokjang/core/user"
)

// InitValidators registers the teacher validators on `validate`.
// user.InitValidators must have been called on it first; it registers the password policy translations.
func InitValidators(validate *validator.Validate) {
	validate.RegisterStructValidation(newTeacherStructValidation, NewTeacher{})
}

func newTeacherStructValidation(sl validator.StructLevel) {
	nt, ok := sl.Current().Interface().(NewTeacher)
	if !ok {
		return
	}
	if tag := user.PasswordPolicyTag(nt.Password, nt.Name, nt.Username, nt.Email); tag != "" {
		sl.ReportError(nt.Password, "password", "Password", tag, "")
	}
}
