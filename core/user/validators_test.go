package user

import (
	"testing"

	"github.com/sarang-youth/mokjang/core"
)

func TestPasswordPolicyTag(t *testing.T) {
	commonPasswordsOnce.Do(loadCommonPasswords)

	tests := []struct {
		name  string
		pwd   string
		attrs []string
		want  string
	}{
		{name: "too short", pwd: "Ab1!", want: pwdMinLenTag},
		{name: "whitespace", pwd: "Abc 123!x", want: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", want: pwdNotAllNumTag},
		{name: "no special", pwd: "Abcdefg12", want: pwdComplexityTag},
		{name: "no digit", pwd: "Abcdefg!!", want: pwdComplexityTag},
		{name: "similar to username", pwd: "kimteacher1!", attrs: []string{"Kim", "kimteacher"}, want: pwdAttrSimTag},
		{name: "common", pwd: "P@$$w0rd", want: pwdNoCommonTag},
		{name: "korean letters", pwd: "목장사랑2024!", attrs: []string{"teacher"}},
		{name: "valid", pwd: "gr8-Sunday!", attrs: []string{"Kim", "kim", "kim@church.kr"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PasswordPolicyTag(tt.pwd, tt.attrs...); got != tt.want {
				t.Errorf("PasswordPolicyTag() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewUserValidation(t *testing.T) {
	validate, translator := core.NewValidator()
	InitValidators(validate, translator)

	tests := []struct {
		name    string
		nu      NewUser
		wantErr bool
	}{
		{
			name: "valid",
			nu:   NewUser{Name: "Kim", Username: "kim_t", Password: "gr8-Sunday!", PasswordConfirm: "gr8-Sunday!", Role: RoleTeacher},
		},
		{
			name:    "password mismatch",
			nu:      NewUser{Name: "Kim", Username: "kim_t", Password: "gr8-Sunday!", PasswordConfirm: "gr8-Sunday", Role: RoleTeacher},
			wantErr: true,
		},
		{
			name:    "invalid role",
			nu:      NewUser{Name: "Kim", Username: "kim_t", Password: "gr8-Sunday!", PasswordConfirm: "gr8-Sunday!", Role: "pastor"},
			wantErr: true,
		},
		{
			name:    "weak password",
			nu:      NewUser{Name: "Kim", Username: "kim_t", Password: "password", PasswordConfirm: "password", Role: RoleTeacher},
			wantErr: true,
		},
		{
			name:    "bad username",
			nu:      NewUser{Name: "Kim", Username: "kim t", Password: "gr8-Sunday!", PasswordConfirm: "gr8-Sunday!", Role: RoleTeacher},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate.Struct(tt.nu); (err != nil) != tt.wantErr {
				t.Errorf("validate.Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
