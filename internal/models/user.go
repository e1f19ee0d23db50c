package models

import "fmt"

type Role string

const (
	RoleDoctor Role = "doctor"
	RoleUser   Role = "user"
)

type User struct {
	ID          UserID `json:"id"`
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	Email       string `json:"email"`
	DateOfBirth string `json:"dateOfBirth"`
	Role        Role   `json:"role"`
}

// DisplayName 展示名，缺名字时退回 "User #<id>"
func (u User) DisplayName() string {
	switch {
	case u.Name != "" && u.Surname != "":
		return u.Name + " " + u.Surname
	case u.Name != "":
		return u.Name
	case u.Surname != "":
		return u.Surname
	}
	return FallbackName(u.ID)
}

func (u User) IsDoctor() bool {
	return u.Role == RoleDoctor
}

func FallbackName(id UserID) string {
	return fmt.Sprintf("User #%d", id)
}

// Credentials 登录
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Registration 注册，角色只能是 doctor 或 user
type Registration struct {
	Name        string `json:"name" validate:"required,max=64"`
	Surname     string `json:"surname" validate:"required,max=64"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	DateOfBirth string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Role        Role   `json:"role" validate:"required,oneof=doctor user"`
}

// TokenPair 认证载荷
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (t TokenPair) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}
