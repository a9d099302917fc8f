package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/spendsync/internal/client/services"
	"github.com/dmitrijs2005/spendsync/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts the user for a username and password and attempts to
// create a new account via the AuthService.
//
// On success it prints "Success!" and returns nil. The password byte slice
// is wiped before returning. Any I/O or service error is returned unchanged.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, userName, password); err != nil {
		fmt.Fprintf(a.out, "Registration failed: %v\n", err)
		return err
	}

	fmt.Fprintln(a.out, "Success!")
	return nil
}

// Login prompts the user for credentials and tries to authenticate.
//
// The method first attempts an online login. If the server is unavailable
// it falls back to offline login against the cached credentials. On success
// the connectivity mode follows the login path and a sync session starts for
// the owner. When both fail the mode becomes ModeDisabled.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	id, err := a.authService.OnlineLogin(ctx, userName, password)
	switch {
	case err == nil:
		fmt.Fprintln(a.out, "Login successful")
		a.markOnline(true)

	case errors.Is(err, common.ErrUnavailable):
		fmt.Fprintln(a.out, "Server unavailable, trying offline login...")
		id, err = a.authService.OfflineLogin(ctx, userName, password)
		if err != nil {
			fmt.Fprintf(a.out, "Offline login unsuccessful: %v\n", err)
			a.setMode(ModeDisabled)
			return err
		}
		fmt.Fprintln(a.out, "Offline login successful")
		a.markOnline(false)

	default:
		fmt.Fprintf(a.out, "Login unsuccessful: %v\n", err)
		return err
	}

	if a.isLoggedIn() {
		a.endSession(ctx)
	}
	a.begin(ctx, id)
	return nil
}

// Logout stops the owner's sync session and forgets the cached credentials.
// Expenses and budgets stay in the local store.
func (a *App) Logout(ctx context.Context) error {
	a.endSession(ctx)
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) markOnline(online bool) {
	if a.monitor != nil {
		a.monitor.Set(online)
		return
	}
	if online {
		a.setMode(ModeOnline)
	} else {
		a.setMode(ModeOffline)
	}
}

// begin is a seam over startSession; tests replace it to avoid a live
// manager.
func (a *App) begin(ctx context.Context, id services.Identity) {
	if a.startHook != nil {
		a.startHook(ctx, id)
		return
	}
	a.startSession(ctx, id)
}
