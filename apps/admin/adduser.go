package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/teacher"
	"github.com/sarang-youth/mokjang/core/user"
)

// addUser updates or creates an active user. New users get a teacher profile so they can lead mokjangs.
// No password policy applies here.
func (cli *commandLine) addUser(uname, email, name, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)
	if name == "" {
		name = uname
	}
	role := user.RoleTeacher
	if isAdmin {
		role = user.RoleAdmin
	}

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	switch {
	case err == nil:
		usr.Role = role
		usr.IsActive = true
		if email != "" {
			usr.Email = email
		}
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		usr.UpdatedAt = time.Now().UTC()
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
		return err
	case errors.Cause(err) != core.ErrNotFound:
		return err
	}

	if err = cli.usrRepo.CheckUniqueness(ctx, uname, email, ""); err != nil {
		return err
	}
	isActive := true
	usr, err = user.NewUserFrom(user.NewUser{
		Name:     name,
		Username: uname,
		Email:    email,
		Password: pwd,
		Role:     role,
		IsActive: &isActive,
	})
	if err != nil {
		return err
	}
	_, err = cli.teacherRepo.CreateTeacher(ctx, usr, teacher.Teacher{
		Username:  usr.Username,
		IsActive:  true,
		Name:      name,
		Email:     email,
		Status:    teacher.StatusActive,
		CreatedAt: usr.CreatedAt,
		UpdatedAt: usr.UpdatedAt,
	})
	return err
}
