package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"

	"tip20kit/core/events"
	"tip20kit/core/roles"
	"tip20kit/sdk/token"
	"tip20kit/storage/checkpoint"
)

const watchKinds = "transfer, mint, burn, approve, role, admin-role, quote, pause, create"

type watchFlags struct {
	token     string
	fromBlock string
	resume    string
	limit     int

	from    string
	to      string
	owner   string
	spender string
	account string
	role    string
}

// watcher prints events as JSON lines and advances the checkpoint, if any.
type watcher struct {
	out    io.Writer
	store  *checkpoint.Store
	name   string
	resume *checkpoint.Checkpoint
	limit  int

	mu    sync.Mutex
	count int
	err   error
	done  chan struct{}
	once  sync.Once
}

func (w *watcher) stop(err error) {
	w.once.Do(func() {
		w.err = err
		close(w.done)
	})
}

func (w *watcher) deliver(ev events.Event, log types.Log) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.resume != nil && w.resume.Seen(log) {
		return
	}
	if w.limit > 0 && w.count >= w.limit {
		return
	}
	if err := writeLine(w.out, events.Render(ev, log)); err != nil {
		w.stop(err)
		return
	}
	if w.store != nil {
		if err := w.store.Save(w.name, checkpoint.At(log)); err != nil {
			w.stop(fmt.Errorf("save checkpoint %s: %w", w.name, err))
			return
		}
	}
	w.count++
	if w.limit > 0 && w.count >= w.limit {
		w.stop(nil)
	}
}

// follow starts a watch of one event kind and blocks until the context ends,
// the limit is reached or the subscription fails.
func follow[E events.Event, F any](
	ctx context.Context,
	w *watcher,
	subscribe func(context.Context, token.WatchParams[E, F]) (token.Unsubscribe, error),
	opts token.WatchOptions,
	filter F,
) error {
	opts.OnError = func(err error) { w.stop(err) }
	unsubscribe, err := subscribe(ctx, token.WatchParams[E, F]{
		WatchOptions: opts,
		Args:         filter,
		OnEvent:      func(ev E, log types.Log) { w.deliver(ev, log) },
	})
	if err != nil {
		return err
	}
	defer unsubscribe()

	select {
	case <-ctx.Done():
		return nil
	case <-w.done:
		return w.err
	}
}

func runWatch(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("watch: expected one of %s", watchKinds)
	}
	kind := args[0]

	fs := newFlagSet("watch " + kind)
	var f watchFlags
	fs.StringVar(&f.token, "token", "", "only events of this token (all tokens when omitted)")
	fs.StringVar(&f.fromBlock, "from-block", "", "replay history from this block")
	fs.StringVar(&f.resume, "resume", "", "checkpoint name; resumes after the last delivered event")
	fs.IntVar(&f.limit, "limit", 0, "exit after this many events")
	fs.StringVar(&f.from, "from", "", "sender filter (transfer, burn)")
	fs.StringVar(&f.to, "to", "", "recipient filter (transfer, mint)")
	fs.StringVar(&f.owner, "owner", "", "owner filter (approve)")
	fs.StringVar(&f.spender, "spender", "", "spender filter (approve)")
	fs.StringVar(&f.account, "account", "", "account filter (role) or admin filter (create)")
	fs.StringVar(&f.role, "role", "", "role filter (role, admin-role)")
	if err := parseFlags(fs, args[1:]); err != nil {
		return err
	}

	var opts token.WatchOptions
	var err error
	if opts.Token, err = s.optionalTokenRef("token", f.token); err != nil {
		return err
	}
	if f.fromBlock != "" {
		n, err := strconv.ParseUint(f.fromBlock, 10, 64)
		if err != nil {
			return fmt.Errorf("--from-block: %w", err)
		}
		opts.FromBlock = new(big.Int).SetUint64(n)
	}

	w := &watcher{out: stdout, limit: f.limit, done: make(chan struct{})}
	if f.resume != "" {
		store, err := checkpoint.Open(s.cfg.CheckpointDB, nil)
		if err != nil {
			return err
		}
		defer store.Close()
		w.store, w.name = store, f.resume
		cp, err := store.Load(f.resume)
		switch {
		case errors.Is(err, checkpoint.ErrNotFound):
		case err != nil:
			return err
		default:
			w.resume = &cp
			opts.FromBlock = cp.FromBlock()
			s.logger.Info("resuming watch",
				slog.String("checkpoint", f.resume),
				slog.Uint64("block", cp.Block),
				slog.Uint64("logIndex", uint64(cp.LogIndex)))
		}
	}

	from, err := optionalAddressPtr("from", f.from)
	if err != nil {
		return err
	}
	to, err := optionalAddressPtr("to", f.to)
	if err != nil {
		return err
	}
	owner, err := optionalAddressPtr("owner", f.owner)
	if err != nil {
		return err
	}
	spender, err := optionalAddressPtr("spender", f.spender)
	if err != nil {
		return err
	}
	account, err := optionalAddressPtr("account", f.account)
	if err != nil {
		return err
	}
	var role *roles.Role
	if f.role != "" {
		r, err := parseRole("role", f.role)
		if err != nil {
			return err
		}
		role = &r
	}

	c := s.client
	switch kind {
	case "transfer":
		return follow(ctx, w, c.WatchTransfer, opts, token.TransferFilter{From: from, To: to})
	case "mint":
		return follow(ctx, w, c.WatchMint, opts, token.MintFilter{To: to})
	case "burn":
		return follow(ctx, w, c.WatchBurn, opts, token.BurnFilter{From: from})
	case "approve":
		return follow(ctx, w, c.WatchApprove, opts, token.ApproveFilter{Owner: owner, Spender: spender})
	case "role":
		return follow(ctx, w, c.WatchRole, opts, token.RoleFilter{Role: role, Account: account})
	case "admin-role":
		return follow(ctx, w, c.WatchAdminRole, opts, token.AdminRoleFilter{Role: role})
	case "quote":
		return follow(ctx, w, c.WatchUpdateQuoteToken, opts, token.QuoteTokenFilter{})
	case "pause":
		return follow(ctx, w, c.WatchPause, opts, token.PauseFilter{})
	case "create":
		return follow(ctx, w, c.WatchCreate, opts, token.CreateFilter{Admin: account})
	default:
		return fmt.Errorf("watch: unknown event kind %q (expected one of %s)", kind, watchKinds)
	}
}

func writeLine(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(raw, '\n'))
	return err
}

func runCheckpoints(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("checkpoints")
	reset := fs.String("reset", "", "forget the named checkpoint")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	store, err := checkpoint.Open(s.cfg.CheckpointDB, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	if *reset != "" {
		if err := store.Delete(*reset); err != nil {
			return err
		}
		return writeJSON(stdout, map[string]string{"reset": *reset})
	}
	names, err := store.Names()
	if err != nil {
		return err
	}
	out := make(map[string]checkpoint.Checkpoint, len(names))
	for _, name := range names {
		cp, err := store.Load(name)
		if err != nil {
			return err
		}
		out[name] = cp
	}
	return writeJSON(stdout, out)
}
