package testutil

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/teacher"
	"github.com/sarang-youth/mokjang/core/user"
)

// Password satisfies the password policy for the users created below.
const Password = "Sunday#School2020"

// NewConfig returns a test-mode config that never reaches a real vendor.
func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		AppName:          "Mokjang",
		SecretKey:        "test-secret",
		Timezone:         "Asia/Seoul",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Mokjang", Address: "noreply@localhost"},
		Server: core.ServerConfig{
			SessionCookie:          "session",
			SessionExpirationDelta: time.Hour,
			AllowedOrigins:         []string{"http://localhost:3000"},
		},
		SMS: core.SMSConfig{TestMode: true},
		Attendance: core.AttendanceConfig{
			TeacherLongAbsenceWeeks: 2,
			AdminLongAbsenceWeeks:   4,
		},
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateTeacher creates an active teacher whose password is Password.
func CreateTeacher(t *testing.T, svc *teacher.Service, name, uname, role string, mokjangIDs ...string) teacher.Teacher {
	tchr, err := svc.Create(context.Background(), teacher.NewTeacher{
		Name:            name,
		Username:        uname,
		Email:           uname + "@church.test",
		Password:        Password,
		PasswordConfirm: Password,
		Role:            role,
		MokjangIDs:      mokjangIDs,
	})
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tchr
}
