package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/GateKeeper/internal/models"
)

const shellHelp = "Available commands: help, list, register <user> <password>, login <user> <password>, leaked <password>, delete <user>, exit"

// Shell runs an interactive loop over in, printing results to out, until
// "exit", end of input or ctx cancellation.
func Shell(ctx context.Context, c *Client, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "users> ")
		if ctx.Err() != nil || !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		args := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Fprintln(out, shellHelp)
		case "list":
			users, err := c.List(ctx)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			if len(users) == 0 {
				fmt.Fprintln(out, "No users registered")
			}
			for _, u := range users {
				fmt.Fprintln(out, u.Username)
			}
		case "register":
			if len(args) != 3 {
				fmt.Fprintln(out, "Usage: register <user> <password>")
				continue
			}
			if err := c.Register(ctx, models.User{Username: args[1], Password: args[2]}); err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			fmt.Fprintln(out, "Registration successful")
		case "login":
			if len(args) != 3 {
				fmt.Fprintln(out, "Usage: login <user> <password>")
				continue
			}
			u, err := c.Authenticate(ctx, models.User{Username: args[1], Password: args[2]})
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			b, _ := json.MarshalIndent(u, "", "  ")
			fmt.Fprintln(out, string(b))
		case "leaked":
			if len(args) != 2 {
				fmt.Fprintln(out, "Usage: leaked <password>")
				continue
			}
			leaked, err := c.IsPasswordLeaked(ctx, args[1])
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			fmt.Fprintln(out, leaked)
		case "delete":
			if len(args) != 2 {
				fmt.Fprintln(out, "Usage: delete <user>")
				continue
			}
			if err := c.Delete(ctx, args[1]); err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			fmt.Fprintln(out, "User deleted")
		case "exit":
			fmt.Fprintln(out, "Bye")
			return
		default:
			fmt.Fprintln(out, "Unknown command. Type 'help' for a list of commands.")
		}
	}
}
