package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/WildanFrananda/ProMentor-app/internal/apperrors"
	"github.com/WildanFrananda/ProMentor-app/internal/appstate"
	"github.com/WildanFrananda/ProMentor-app/internal/auth"
	"github.com/WildanFrananda/ProMentor-app/internal/logger"
	"github.com/WildanFrananda/ProMentor-app/internal/models"
	"github.com/WildanFrananda/ProMentor-app/internal/realtime"
	"github.com/WildanFrananda/ProMentor-app/internal/repository"
	"github.com/WildanFrananda/ProMentor-app/internal/secstore"
	"github.com/WildanFrananda/ProMentor-app/internal/transport"
)

const usage = `usage: promentor [flags] <command> [args]

commands:
  register <email> <password> <name>
  login <email> <password>
  logout
  me
  sessions [query]
  detail <session-id>
  join <session-id>
  history
  rate <session-id> <rating 1-5> [comment]
  create <title> <capacity> <start RFC3339>
  chat <session-id>
`

// App wires the client stack and dispatches console commands.
type App struct {
	logger   logger.Logger
	state    *appstate.State
	store    secstore.Store
	auth     *auth.Manager
	sessions *repository.SessionRepo
	users    *repository.UserRepo
	channel  *realtime.Channel
	out      io.Writer
	in       io.Reader
}

func NewApp(c *Config) (*App, error) {
	log := logger.New(os.Stderr, c.LogLevel, c.Environment)

	if c.StorePassphrase == "" {
		return nil, errors.New("a store passphrase is required (STORE_PASSPHRASE or --passphrase)")
	}
	storePath, err := c.ResolveStorePath()
	if err != nil {
		return nil, fmt.Errorf("resolving credential store path: %w", err)
	}
	store, err := secstore.NewFileStore(storePath, []byte(c.StorePassphrase))
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	api, err := transport.New(c.APIBaseURL, store, log)
	if err != nil {
		return nil, fmt.Errorf("building transport: %w", err)
	}

	state := appstate.New()
	manager := auth.NewManager(auth.Config{}, api, store, state, log)
	manager.Bootstrap()

	wsBase := api.BaseURL()
	if c.WSBaseURL != "" {
		u, err := url.Parse(c.WSBaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid WebSocket base URL: %w", err)
		}
		wsBase = *u
	}

	return &App{
		logger:   log,
		state:    state,
		store:    store,
		auth:     manager,
		sessions: repository.NewSessionRepo(api, manager, log),
		users:    repository.NewUserRepo(api, manager, log),
		channel:  realtime.New(wsBase, log),
		out:      os.Stdout,
		in:       os.Stdin,
	}, nil
}

// Run executes one command. Transient notifications posted along the way
// are drained to stderr.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errors.New("no command given")
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case n := <-a.state.Notifications():
				fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Style, n.Message)
			case <-done:
				return
			}
		}
	}()
	defer close(done)

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return a.cmdRegister(ctx, rest)
	case "login":
		return a.cmdLogin(ctx, rest)
	case "logout":
		return a.auth.Logout(ctx)
	case "me":
		return a.cmdMe(ctx)
	case "sessions":
		return a.cmdSessions(ctx, rest)
	case "detail":
		return a.cmdDetail(ctx, rest)
	case "join":
		return a.cmdJoin(ctx, rest)
	case "history":
		return a.cmdHistory(ctx)
	case "rate":
		return a.cmdRate(ctx, rest)
	case "create":
		return a.cmdCreate(ctx, rest)
	case "chat":
		return a.cmdChat(ctx, rest)
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *App) cmdRegister(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errors.New("register needs <email> <password> <name>")
	}

	resp, err := a.auth.Register(ctx, models.RegisterRequest{
		Email:    args[0],
		Password: args[1],
		Name:     args[2],
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "registered: %s (%s)\n", resp.UserID, resp.Message)
	return nil
}

func (a *App) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("login needs <email> <password>")
	}

	if err := a.auth.Login(ctx, models.LoginRequest{Email: args[0], Password: args[1]}); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "logged in")
	return nil
}

func (a *App) cmdMe(ctx context.Context) error {
	user, err := a.users.CurrentUser(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s <%s> role=%s\n", user.Name, user.Email, user.Role)
	return nil
}

func (a *App) cmdSessions(ctx context.Context, args []string) error {
	listing := repository.NewListing(a.sessions, 20)
	if len(args) > 0 {
		listing.SetQuery(args[0])
	}

	if err := listing.Load(ctx); err != nil {
		return err
	}
	for listing.CanLoadMore() {
		if err := listing.LoadMore(ctx); err != nil {
			return err
		}
	}

	for _, s := range listing.Items() {
		fmt.Fprintf(a.out, "%s  %-40s %s\n", s.ID, s.Title, s.StartAt.Format(time.RFC3339))
	}
	return nil
}

func (a *App) cmdDetail(ctx context.Context, args []string) error {
	id, err := parseSessionID(args)
	if err != nil {
		return err
	}

	detail, err := a.sessions.Detail(ctx, id)
	if err != nil {
		return err
	}

	user, err := a.users.CurrentUser(ctx)
	if err != nil {
		return err
	}
	status, err := a.sessions.UserStatus(ctx, detail, user)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s\ncoach: %s\nstarts: %s\ncapacity: %d\nstatus: %s\n",
		detail.Title, detail.Coach.Name, detail.StartAt.Format(time.RFC3339), detail.Capacity, status)
	return nil
}

func (a *App) cmdJoin(ctx context.Context, args []string) error {
	id, err := parseSessionID(args)
	if err != nil {
		return err
	}

	if err := a.sessions.Join(ctx, id); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "joined")
	return nil
}

func (a *App) cmdHistory(ctx context.Context) error {
	history, err := a.sessions.History(ctx)
	if err != nil {
		return err
	}

	if len(history) == 0 {
		fmt.Fprintln(a.out, "no sessions attended yet")
		return nil
	}
	for _, s := range history {
		fmt.Fprintf(a.out, "%s  %s\n", s.ID, s.Title)
	}
	return nil
}

func (a *App) cmdRate(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("rate needs <session-id> <rating 1-5> [comment]")
	}
	id, err := parseSessionID(args[:1])
	if err != nil {
		return err
	}
	rating, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("rating must be a number: %w", err)
	}

	req := models.RateSessionRequest{Rating: rating}
	if len(args) > 2 {
		req.Comment = args[2]
	}

	if err := a.sessions.Rate(ctx, id, req); err != nil {
		return errors.New(apperrors.UserMessage(err))
	}

	fmt.Fprintln(a.out, "rating submitted")
	return nil
}

func (a *App) cmdCreate(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errors.New("create needs <title> <capacity> <start RFC3339>")
	}
	capacity, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("capacity must be a number: %w", err)
	}
	startAt, err := time.Parse(time.RFC3339, args[2])
	if err != nil {
		return fmt.Errorf("start time must be RFC3339: %w", err)
	}

	created, err := a.sessions.Create(ctx, models.CreateSessionRequest{
		Title:    args[0],
		Capacity: capacity,
		StartAt:  startAt,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "created session %s\n", created.ID)
	return nil
}

// cmdChat keeps a realtime channel open: stdin lines go out as chat
// messages, incoming events print until the connection dies or the context
// is cancelled.
func (a *App) cmdChat(ctx context.Context, args []string) error {
	id, err := parseSessionID(args)
	if err != nil {
		return err
	}

	if a.auth.AccessTokenExpired() {
		if err := a.auth.RefreshToken(ctx); err != nil {
			return err
		}
	}
	token, ok, err := a.store.Get(secstore.KeyAccessToken)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrSessionExpired
	}

	events, err := a.channel.Connect(ctx, id, token)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		a.channel.Disconnect()
	}()

	go func() {
		scanner := bufio.NewScanner(a.in)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if err := a.channel.Send(ctx, realtime.NewChatMessage(line)); err != nil {
				a.logger.Error("sending chat message", "err", err)
				return
			}
		}
	}()

	for ev := range events {
		switch ev.Kind {
		case realtime.EventConnected:
			fmt.Fprintln(a.out, "* connected, type to chat")
		case realtime.EventMessage:
			a.printServerMessage(ev.Message)
		case realtime.EventError:
			fmt.Fprintf(os.Stderr, "! %s\n", apperrors.UserMessage(ev.Err))
		case realtime.EventDisconnected:
			fmt.Fprintln(a.out, "* disconnected")
		}
	}
	return nil
}

func (a *App) printServerMessage(msg realtime.ServerMessage) {
	switch m := msg.(type) {
	case realtime.ChatMessage:
		fmt.Fprintf(a.out, "%s: %s\n", m.Sender.Name, m.Content)
	case realtime.SessionJoined:
		fmt.Fprintln(a.out, "* someone joined the session")
	case realtime.SessionCreated:
		fmt.Fprintf(a.out, "* session %s went live\n", m.SessionID)
	case realtime.Unknown:
		a.logger.Debug("ignoring unknown realtime message", "type", m.Type)
	}
}

func parseSessionID(args []string) (uuid.UUID, error) {
	if len(args) < 1 {
		return uuid.Nil, errors.New("a session id is required")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session id: %w", err)
	}
	return id, nil
}
