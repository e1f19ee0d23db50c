package main

import (
	"fmt"
	"os"

	"carelink/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
)

var validate = validator.New()

// runLogin 登录并保存令牌；--remember=false 时令牌只在本进程有效
func runLogin(cmd *cobra.Command, args []string) error {
	cred := models.Credentials{Email: loginEmail, Password: loginPassword}
	if err := validate.Struct(cred); err != nil {
		return models.NewValidationError(err.Error())
	}
	pair, err := ws.API.Login(cmd.Context(), cred)
	if err != nil {
		return err
	}
	return signIn(cmd, pair)
}

func runRegister(cmd *cobra.Command, args []string) error {
	reg := models.Registration{
		Name:        regName,
		Surname:     regSurname,
		Email:       loginEmail,
		Password:    loginPassword,
		DateOfBirth: regBirth,
		Role:        models.Role(regRole),
	}
	if err := validate.Struct(reg); err != nil {
		return models.NewValidationError(err.Error())
	}
	pair, err := ws.API.Register(cmd.Context(), reg)
	if err != nil {
		return err
	}
	return signIn(cmd, pair)
}

func signIn(cmd *cobra.Command, pair models.TokenPair) error {
	ctx := cmd.Context()
	if err := ws.Reset(); err != nil {
		return err
	}
	if err := ws.Auth.SignIn(ctx, pair, loginRemember); err != nil {
		return err
	}
	if !loginRemember {
		fmt.Fprintln(os.Stderr, "note: session not remembered, it ends when this command exits")
	}
	return runWhoami(cmd, nil)
}

func runLogout(cmd *cobra.Command, args []string) error {
	if err := ws.Auth.SignOut(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if !ws.Auth.Authenticated() {
		if asJSON {
			return writeJSON(out, map[string]any{"authenticated": false})
		}
		fmt.Fprintln(out, "not signed in")
		return nil
	}
	v, err := ws.Viewer(cmd.Context())
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, map[string]any{
			"authenticated": true,
			"remember":      ws.Auth.Remembered(),
			"userId":        v.ID,
			"name":          v.Name,
		})
	}
	fmt.Fprintf(out, "%s (id %d)\n", v.Name, v.ID)
	return nil
}

// requireSession 未登录时给出提示而不是 401
func requireSession(cmd *cobra.Command) error {
	if !ws.Auth.Authenticated() {
		return models.NewUnauthorizedError("not signed in, run `carelink login` first")
	}
	return nil
}
