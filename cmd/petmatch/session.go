package main

import (
	"context"
	"fmt"
	"io"

	"petmatch/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Print the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printSession(cmd.Context(), cmd.OutOrStdout(), cfg, logger)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return logout(cmd.Context(), cmd.OutOrStdout(), cfg, logger)
	},
}

func printSession(ctx context.Context, w io.Writer, c config.Config, log *zap.Logger) error {
	sessions, closer, err := newSessionStore(ctx, c, log)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()
	sessions.Rehydrate(ctx)

	st := sessions.Snapshot()
	if !st.IsAuthenticated() {
		_, err := fmt.Fprintln(w, "not signed in")
		return err
	}
	role := st.Role.String()
	if role == "" {
		role = "-"
	}
	id := "-"
	if st.HasUserID {
		id = fmt.Sprint(st.UserID)
	}
	_, err = fmt.Fprintf(w, "signed in\nrole: %s\nuser id: %s\n", role, id)
	return err
}

func logout(ctx context.Context, w io.Writer, c config.Config, log *zap.Logger) error {
	sessions, closer, err := newSessionStore(ctx, c, log)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()
	sessions.Rehydrate(ctx)
	sessions.Logout(ctx)
	_, err = fmt.Fprintln(w, "signed out")
	return err
}
