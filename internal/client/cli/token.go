package cli

import (
	"context"
	"fmt"
)

// Token reads an API access token without echo and installs it on the
// transport for every following request.
func (a *App) Token(ctx context.Context) error {
	token, err := GetToken(a.out)
	if err != nil {
		colorError.Fprintln(a.out, "Cannot read token:", err.Error())
		return err
	}
	if len(token) == 0 {
		fmt.Fprintln(a.out, "Token unchanged.")
		return nil
	}

	a.api.SetAccessToken(string(token))
	a.tokenSet = true
	fmt.Fprintln(a.out, "Token set.")
	return nil
}
