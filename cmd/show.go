package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/threadkit/internal/config"
	"github.com/threadkit/internal/store"
	"github.com/threadkit/pkg/thread"
)

// ShowCommand returns the CLI command for a one-shot discussion dump
func ShowCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Fetch a discussion and print it to the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "sort",
				Usage: "Sort order: newest, oldest, or popular",
				Value: "newest",
			},
			&cli.IntFlag{
				Name:  "number",
				Usage: "Discussion number (skips content resolution)",
			},
			&cli.StringFlag{
				Name:  "type",
				Usage: "Content type to resolve (overrides config)",
			},
			&cli.StringFlag{
				Name:  "identifier",
				Usage: "Content identifier to resolve (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "replies",
				Usage: "Also fetch and print replies",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Give up after this long",
				Value: 30 * time.Second,
			},
		},
		Action: runShow,
	}
}

func runShow(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.Int("number") != 0 {
		cfg.Discussion.Number = c.Int("number")
	}
	if c.String("type") != "" {
		cfg.Discussion.ContentType = c.String("type")
	}
	if c.String("identifier") != "" {
		cfg.Discussion.Identifier = c.String("identifier")
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	st, number, err := buildStore(c.Context, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SetSortBy(thread.SortOption(c.String("sort"))); err != nil {
		return err
	}

	changes := make(chan struct{}, 1)
	unsubscribe := st.Subscribe(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	deadline := time.After(c.Duration("timeout"))
	st.Load(number)

	snap, err := waitFor(st, changes, deadline, func(s store.Snapshot) bool {
		return s.State == store.StateReady || s.State == store.StateFailed
	})
	if err != nil {
		return err
	}
	if snap.State == store.StateFailed {
		return fmt.Errorf("failed to load discussion #%d: %s", number, snap.LastError.Error())
	}

	if c.Bool("replies") {
		for _, comment := range snap.Comments {
			if comment.ReplyCount == 0 {
				continue
			}
			st.ToggleExpanded(comment.ID)
			id := comment.ID
			if _, err := waitFor(st, changes, deadline, func(s store.Snapshot) bool {
				_, loaded := s.Replies[id]
				return loaded || !s.RepliesLoading[id]
			}); err != nil {
				return err
			}
		}
		snap = st.Snapshot()
	}

	printDiscussion(snap, number)
	return nil
}

// waitFor blocks until the store satisfies done, the deadline fires, or the
// store stops changing.
func waitFor(st *store.Store, changes <-chan struct{}, deadline <-chan time.Time, done func(store.Snapshot) bool) (store.Snapshot, error) {
	for {
		snap := st.Snapshot()
		if done(snap) {
			return snap, nil
		}
		select {
		case <-changes:
		case <-deadline:
			return store.Snapshot{}, fmt.Errorf("timed out waiting for the discussion host")
		}
	}
}

func printDiscussion(snap store.Snapshot, number int) {
	fmt.Printf("Discussion #%d — %d comments (%s)\n\n", number, len(snap.Comments), snap.SortBy)
	for _, comment := range snap.Comments {
		printEntry(comment, "")
		for _, reply := range snap.Replies[comment.ID] {
			printEntry(reply.Comment, "    ")
		}
		fmt.Println()
	}
}

func printEntry(c thread.Comment, indent string) {
	label := "@" + c.Author.Handle
	if c.AssociationBadge != "" {
		label += " [" + c.AssociationBadge + "]"
	}
	body := c.Body
	if c.Deleted {
		body = "(deleted)"
	}
	fmt.Printf("%s%s · +%d/-%d · %s\n", indent, label, c.Reactions.Up, c.Reactions.Down,
		c.CreatedAt.Format(time.RFC822))
	fmt.Printf("%s  %s\n", indent, body)
}
