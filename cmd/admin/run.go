package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/angelmondragon/pieshop-backend/internal/admins"
	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
)

const usage = "usage: admin <add|remove|toggle|list> [-user-id N] [-username NAME]"

func run(ctx context.Context, args []string, svc admins.Service, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	userID := fs.Int64("user-id", 0, "chat user id")
	username := fs.String("username", "", "display name (add only)")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	switch args[0] {
	case "add":
		if err := requireUserID(*userID); err != nil {
			return err
		}
		admin, err := svc.Add(ctx, *userID, *username)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "admin %d active\n", admin.UserID)
	case "remove":
		if err := requireUserID(*userID); err != nil {
			return err
		}
		if err := svc.Remove(ctx, *userID); err != nil {
			return err
		}
		fmt.Fprintf(out, "admin %d removed\n", *userID)
	case "toggle":
		if err := requireUserID(*userID); err != nil {
			return err
		}
		admin, err := svc.Toggle(ctx, *userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "admin %d %s\n", admin.UserID, activeLabel(admin.IsActive))
	case "list":
		list, err := svc.List(ctx)
		if err != nil {
			return err
		}
		return writeTable(out, list)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
	return nil
}

func requireUserID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("-user-id must be a positive chat user id")
	}
	return nil
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func writeTable(out io.Writer, list []models.Admin) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USER ID\tUSERNAME\tSTATUS")
	for _, admin := range list {
		name := "-"
		if admin.Username != nil {
			name = *admin.Username
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", strconv.FormatInt(admin.UserID, 10), name, activeLabel(admin.IsActive))
	}
	return tw.Flush()
}
