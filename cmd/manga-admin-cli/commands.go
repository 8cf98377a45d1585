// ABOUTME: Resource commands for the admin CLI
// ABOUTME: Lists print aligned tables; mutations print the server's message

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/freegoat/manga-admin/internal/dashboard"
	"github.com/freegoat/manga-admin/internal/store"
)

func (a *app) table(header string) *tabwriter.Writer {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, header)
	return w
}

func (a *app) ok(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(a.out, "  ✓ "+format+"\n", args...)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (a *app) cmdStats(ctx context.Context) error {
	st, err := a.client.Statistics(ctx)
	if err != nil {
		return err
	}
	cyan := color.New(color.FgCyan)
	fmt.Fprintln(a.out)
	cyan.Fprintln(a.out, "  Statistics")
	cyan.Fprintln(a.out, "  ----------")
	fmt.Fprintf(a.out, "  Users:          %d\n", st.TotalUsers)
	fmt.Fprintf(a.out, "  Manga:          %d (%d chapters)\n", st.TotalManga, st.TotalChapters)
	fmt.Fprintf(a.out, "  Downloads:      %d\n", st.TotalDownloads)
	fmt.Fprintf(a.out, "  Notifications:  %d (%d sent)\n", st.TotalNotifications, st.SentNotifications)
	fmt.Fprintf(a.out, "  Repositories:   %d (%d active)\n", st.TotalRepositories, st.ActiveRepositories)
	fmt.Fprintln(a.out)
	return nil
}

func (a *app) cmdNotifications(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	switch sub {
	case "list":
		list, err := a.client.ListNotifications(ctx)
		if err != nil {
			return err
		}
		w := a.table("  ID\tTITLE\tTYPE\tPRIORITY\tSENT\tCREATED")
		for _, n := range list {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n", truncate(n.ID, 12), truncate(n.Title, 32),
				n.Type, n.Priority, yesNo(n.Sent), n.CreatedAt.Local().Format("Jan 02 15:04"))
		}
		return w.Flush()
	case "send":
		if err := need(rest, 2, "notifications send <title> <body> [type] [priority]"); err != nil {
			return err
		}
		in := dashboard.NotificationInput{Title: rest[0], Body: rest[1]}
		if len(rest) > 2 {
			in.Type = store.NotificationType(rest[2])
		}
		if len(rest) > 3 {
			in.Priority = store.Priority(rest[3])
		}
		res, err := a.client.SendNotification(ctx, in, strconv.FormatInt(time.Now().UnixNano(), 36))
		if err != nil {
			return err
		}
		a.ok("%s (id %s, delivered: %s)", res.Message, res.Data.ID, yesNo(res.Data.Sent))
		return nil
	case "delete":
		if err := need(rest, 1, "notifications delete <id>"); err != nil {
			return err
		}
		if err := a.client.DeleteNotification(ctx, rest[0]); err != nil {
			return err
		}
		a.ok("Notification deleted")
		return nil
	default:
		return fmt.Errorf("unknown notifications subcommand: %s", sub)
	}
}

func (a *app) cmdRepos(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	switch sub {
	case "list":
		list, err := a.client.ListRepositories(ctx)
		if err != nil {
			return err
		}
		w := a.table("  ID\tNAME\tURL\tACTIVE\tSOURCES\tUPDATED")
		for _, r := range list {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%d\t%s\n", truncate(r.ID, 12), truncate(r.Name, 24), truncate(r.URL, 36),
				yesNo(r.IsActive), r.SourceCount, r.LastUpdated.Local().Format("Jan 02 15:04"))
		}
		return w.Flush()
	case "add":
		if err := need(rest, 2, "repos add <name> <url> [description]"); err != nil {
			return err
		}
		in := dashboard.RepositoryInput{Name: rest[0], URL: rest[1]}
		if len(rest) > 2 {
			in.Description = rest[2]
		}
		repo, err := a.client.CreateRepository(ctx, in, "")
		if err != nil {
			return err
		}
		a.ok("Repository added (id %s)", repo.ID)
		return nil
	case "toggle":
		if err := need(rest, 1, "repos toggle <id>"); err != nil {
			return err
		}
		repo, err := a.findRepository(ctx, rest[0])
		if err != nil {
			return err
		}
		active := !repo.IsActive
		if _, err := a.client.UpdateRepository(ctx, repo.ID, store.RepositoryUpdate{IsActive: &active}); err != nil {
			return err
		}
		a.ok("%s is now active=%s", repo.Name, yesNo(active))
		return nil
	case "refresh":
		if err := need(rest, 1, "repos refresh <id>"); err != nil {
			return err
		}
		repo, err := a.client.RefreshRepository(ctx, rest[0])
		if err != nil {
			return err
		}
		a.ok("%s refreshed, %d sources", repo.Name, repo.SourceCount)
		return nil
	case "refresh-all":
		n, err := a.client.RefreshAllRepositories(ctx)
		if err != nil {
			return err
		}
		a.ok("Refreshed %d active repositories", n)
		return nil
	case "delete":
		if err := need(rest, 1, "repos delete <id>"); err != nil {
			return err
		}
		if err := a.client.DeleteRepository(ctx, rest[0]); err != nil {
			return err
		}
		a.ok("Repository deleted")
		return nil
	default:
		return fmt.Errorf("unknown repos subcommand: %s", sub)
	}
}

func (a *app) findRepository(ctx context.Context, id string) (*store.Repository, error) {
	list, err := a.client.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range list {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("repository %s not found", id)
}

func (a *app) cmdUsers(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	switch sub {
	case "list":
		list, err := a.client.ListUsers(ctx)
		if err != nil {
			return err
		}
		w := a.table("  ID\tUSERNAME\tEMAIL\tROLE\tSTATUS\tJOINED")
		for _, u := range list {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n", truncate(u.ID, 12), u.Username, truncate(u.Email, 28), u.Role, u.Status, u.JoinDate)
		}
		return w.Flush()
	case "delete":
		if err := need(rest, 1, "users delete <id>"); err != nil {
			return err
		}
		if err := a.client.DeleteUser(ctx, rest[0]); err != nil {
			return err
		}
		a.ok("User deleted")
		return nil
	default:
		return fmt.Errorf("unknown users subcommand: %s", sub)
	}
}

func (a *app) cmdManga(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	switch sub {
	case "list":
		list, err := a.client.ListManga(ctx)
		if err != nil {
			return err
		}
		w := a.table("  ID\tTITLE\tAUTHOR\tSTATUS\tCHAPTERS\tRATING")
		for _, m := range list {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%d\t%.1f\n", truncate(m.ID, 12), truncate(m.Title, 28), truncate(m.Author, 20), m.Status, m.Chapters, m.Rating)
		}
		return w.Flush()
	case "delete":
		if err := need(rest, 1, "manga delete <id>"); err != nil {
			return err
		}
		if err := a.client.DeleteManga(ctx, rest[0]); err != nil {
			return err
		}
		a.ok("Manga deleted")
		return nil
	default:
		return fmt.Errorf("unknown manga subcommand: %s", sub)
	}
}

func (a *app) cmdQuick(ctx context.Context, args []string) error {
	if err := need(args, 1, "quick <clear-cache|export-data|backup>"); err != nil {
		return err
	}
	res, err := a.client.QuickAction(ctx, args[0])
	if err != nil {
		return err
	}
	a.ok("%s", res.Message)
	if args[0] == "export-data" && len(res.Data) > 0 {
		name := fmt.Sprintf("manga-admin-export-%s.json", time.Now().Format("20060102-150405"))
		if err := os.WriteFile(name, res.Data, 0600); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		a.ok("Export written to %s", name)
	}
	return nil
}

func (a *app) cmdAudit(ctx context.Context, args []string) error {
	limit := 20
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid limit %q", args[0])
		}
		limit = n
	}
	entries, err := a.client.AuditLog(ctx, limit)
	if err != nil {
		return err
	}
	w := a.table("  WHEN\tACTOR\tACTION\tTARGET")
	for _, e := range entries {
		target := e.TargetType
		if e.TargetID != "" {
			target += "/" + truncate(e.TargetID, 12)
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", e.Timestamp.Local().Format("Jan 02 15:04:05"), e.Actor, e.Action, target)
	}
	return w.Flush()
}
