package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/alecthomas/kong"
	"github.com/aymanbagabas/go-udiff"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/elee1766/gemchat/src/history"
	"github.com/elee1766/gemchat/src/storage"
	"github.com/elee1766/gemchat/src/theme"
)

// ArchiveCmd browses the sqlite archive
type ArchiveCmd struct {
	List    ArchiveListCmd    `cmd:"" default:"1" help:"List archived conversations"`
	Show    ArchiveShowCmd    `cmd:"" help:"Print an archived conversation"`
	Restore ArchiveRestoreCmd `cmd:"" help:"Replace the transcript with an archived conversation"`
}

const archiveTimeFormat = "2006-01-02 15:04"

// openArchiveDB opens the archive read side. The archive does not have to be
// enabled to be browsed, but it has to exist.
func openArchiveDB(env *cmdEnv) (*storage.DB, error) {
	db, err := storage.Open(env.cfg.Archive.Path)
	if err != nil {
		return nil, withExitCode(ExitConfig, err)
	}
	return db, nil
}

// ArchiveListCmd lists conversations
type ArchiveListCmd struct {
	Limit int  `short:"n" help:"Maximum number of conversations (0 for all)" default:"20"`
	JSON  bool `help:"Print as JSON"`
}

// Run executes the archive list command
func (c *ArchiveListCmd) Run(kctx *kong.Context, cli *CLI) error {
	env, err := cli.setup()
	if err != nil {
		return err
	}
	defer env.Close()

	db, err := openArchiveDB(env)
	if err != nil {
		return err
	}
	defer db.Close()

	convs, err := storage.ListConversations(context.Background(), db.DB(), c.Limit)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	if c.JSON {
		if convs == nil {
			convs = []storage.ConversationSummary{}
		}
		return writeJSON(kctx.Stdout, convs)
	}

	if len(convs) == 0 {
		fmt.Fprintln(kctx.Stdout, "No archived conversations in", db.Path())
		return nil
	}

	rows := make([][]string, 0, len(convs))
	for _, conv := range convs {
		rows = append(rows, []string{
			shortID(conv.ID),
			conv.Title,
			strconv.Itoa(conv.MessageCount),
			conv.UpdatedAt.Local().Format(archiveTimeFormat),
		})
	}

	styles := theme.NewStyles(theme.Current())
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.Muted).
		Headers("ID", "TITLE", "MESSAGES", "UPDATED").
		Rows(rows...)
	if isTerminal(kctx.Stdout) {
		t = t.StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Title.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	}

	fmt.Fprintln(kctx.Stdout, t.Render())
	return nil
}

// shortID is enough of a uuid to find it again with FindConversation
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// archivedConversation is the JSON form of archive show
type archivedConversation struct {
	*storage.Conversation
	Messages []storage.Message `json:"messages"`
}

// loadConversation resolves id and loads its messages.
func loadConversation(ctx context.Context, db *storage.DB, id string) (*archivedConversation, error) {
	conv, err := storage.FindConversation(ctx, db.DB(), id)
	if err != nil {
		if errors.Is(err, storage.ErrAmbiguousID) {
			return nil, withExitCode(ExitUsage, err)
		}
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	if conv == nil {
		return nil, withExitCode(ExitUsage, fmt.Errorf("conversation %q not found", id))
	}

	msgs, err := storage.GetMessagesByConversationID(ctx, db.DB(), conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	if msgs == nil {
		msgs = []storage.Message{}
	}
	return &archivedConversation{Conversation: conv, Messages: msgs}, nil
}

// turns converts archived messages back into transcript turns. Rows with a
// role the transcript does not know are skipped.
func (a *archivedConversation) turns() []history.Turn {
	turns := make([]history.Turn, 0, len(a.Messages))
	for _, m := range a.Messages {
		role, err := history.ParseRole(m.Role)
		if err != nil {
			continue
		}
		turns = append(turns, history.Turn{Role: role, Content: m.Content})
	}
	return turns
}

// ArchiveShowCmd prints one conversation
type ArchiveShowCmd struct {
	ID    string `arg:"" help:"Conversation ID or unique prefix"`
	JSON  bool   `help:"Print as JSON"`
	Width int    `help:"Truncate lines to this many cells (0 for no limit)" default:"0"`
}

// Run executes the archive show command
func (c *ArchiveShowCmd) Run(kctx *kong.Context, cli *CLI) error {
	env, err := cli.setup()
	if err != nil {
		return err
	}
	defer env.Close()

	db, err := openArchiveDB(env)
	if err != nil {
		return err
	}
	defer db.Close()

	conv, err := loadConversation(context.Background(), db, c.ID)
	if err != nil {
		return err
	}

	if c.JSON {
		return writeJSON(kctx.Stdout, conv)
	}

	p := newTranscriptPrinter(kctx.Stdout, c.Width)
	title := conv.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintln(kctx.Stdout, title)
	fmt.Fprintln(kctx.Stdout, p.muted(fmt.Sprintf("%s  %s to %s", conv.ID,
		conv.CreatedAt.Local().Format(archiveTimeFormat),
		conv.UpdatedAt.Local().Format(archiveTimeFormat))))
	fmt.Fprintln(kctx.Stdout)
	p.Print(kctx.Stdout, conv.turns())
	return nil
}

// ArchiveRestoreCmd writes an archived conversation to the transcript file
type ArchiveRestoreCmd struct {
	ID     string `arg:"" help:"Conversation ID or unique prefix"`
	Force  bool   `help:"Overwrite a non-empty transcript"`
	DryRun bool   `help:"Print a diff of the transcript change without writing it"`
}

// Run executes the archive restore command
func (c *ArchiveRestoreCmd) Run(kctx *kong.Context, cli *CLI) error {
	env, err := cli.setup()
	if err != nil {
		return err
	}
	defer env.Close()

	db, err := openArchiveDB(env)
	if err != nil {
		return err
	}
	defer db.Close()

	conv, err := loadConversation(context.Background(), db, c.ID)
	if err != nil {
		return err
	}

	store := history.NewStore(nil, env.cfg.History.Path)
	existing, err := store.Load()
	if err != nil {
		env.logger.Warn("existing transcript unreadable", "path", store.Path(), "error", err)
	}
	turns := conv.turns()

	if c.DryRun {
		diff, err := transcriptDiff(store.Path(), existing, turns)
		if err != nil {
			return err
		}
		if diff == "" {
			fmt.Fprintln(kctx.Stdout, "Transcript already matches", conv.ID)
			return nil
		}
		if isTerminal(kctx.Stdout) {
			diff = highlight(diff, "diff")
		}
		fmt.Fprint(kctx.Stdout, diff)
		return nil
	}

	if len(existing) > 0 && !c.Force {
		return withExitCode(ExitUsage, fmt.Errorf("%s has %d turns, use --force to overwrite", store.Path(), len(existing)))
	}

	if err := store.Save(turns); err != nil {
		return err
	}
	fmt.Fprintf(kctx.Stdout, "Restored %d turns to %s\n", len(turns), store.Path())
	return nil
}

// transcriptDiff is a unified diff between two transcripts rendered as
// indented JSON, one field per line. It is empty when they are equal.
func transcriptDiff(path string, current, restored []history.Turn) (string, error) {
	render := func(turns []history.Turn) (string, error) {
		if turns == nil {
			turns = []history.Turn{}
		}
		data, err := json.MarshalIndent(turns, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode transcript: %w", err)
		}
		return string(data) + "\n", nil
	}

	before, err := render(current)
	if err != nil {
		return "", err
	}
	after, err := render(restored)
	if err != nil {
		return "", err
	}
	return udiff.Unified(path, path+" (restored)", before, after), nil
}
