package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/connect-therapy/session-chat/internal/config"
	"github.com/connect-therapy/session-chat/internal/relay"
	"github.com/connect-therapy/session-chat/internal/transport"
	pkglog "github.com/connect-therapy/session-chat/pkg/log"
)

type joinOptions struct {
	server         string
	sessionID      string
	participantID  string
	maxMessageSize int
}

// frameOverhead leaves room for the JSON frame and chat envelope around a line.
const frameOverhead = 512

// lineLimit is the longest line that still fits in one websocket frame.
func (o joinOptions) lineLimit() int {
	size := o.maxMessageSize
	if size <= 0 {
		size = config.DefaultMaxMessageSize
	}
	if size <= frameOverhead {
		return 1
	}
	return size - frameOverhead
}

func newJoinCommand() *cobra.Command {
	opts := joinOptions{}
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a session room and chat from the terminal",
		Long: "Each line typed is sent to the other participant. " +
			"/pause and /mute toggle media state, /leave asks before leaving the session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.server, "server", "http://localhost:8080", "session chat server base URL")
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "session ID to join")
	cmd.Flags().StringVar(&opts.participantID, "participant", "", "participant ID to join as")
	cmd.Flags().IntVar(&opts.maxMessageSize, "max-message-size", config.DefaultMaxMessageSize,
		"server websocket.max_message_size; longer lines are refused")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("participant")
	return cmd
}

type accessResponse struct {
	LeaveURL string `json:"leaveUrl"`
	Error    string `json:"error"`
}

// fetchLeaveURL asks the server whether the participant may enter and where
// to go after leaving.
func fetchLeaveURL(ctx context.Context, opts joinOptions) (string, error) {
	endpoint := fmt.Sprintf("%s/api/sessions/%s/access?participant=%s",
		strings.TrimRight(opts.server, "/"), url.PathEscape(opts.sessionID), url.QueryEscape(opts.participantID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errors.Wrap(err, "build access request")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "request session access")
	}
	defer resp.Body.Close()

	var body accessResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errors.Wrapf(err, "decode access response (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("session access denied: %s", body.Error)
	}
	return body.LeaveURL, nil
}

func runJoin(ctx context.Context, opts joinOptions, in io.Reader, out io.Writer) error {
	logger := pkglog.Component("chatclient")

	leaveURL, err := fetchLeaveURL(ctx, opts)
	if err != nil {
		return err
	}

	wsURL, err := transport.SessionURL(opts.server, opts.sessionID, opts.participantID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	view := NewTerminalView(out)
	var r *relay.Relay
	post := func(ev relay.Event) {
		if err := r.Post(ctx, ev); err != nil {
			logger.Debug().Err(err).Msgf("dropped %T", ev)
		}
	}

	client, err := transport.Dial(ctx, wsURL, transport.Handlers{
		OnReady:     func(string) { post(relay.TransportReady{}) },
		OnPeerMedia: func(string) { post(relay.PeerMediaAdded{}) },
		OnPeerLeft:  func(string) { view.Notice("The other participant left the room.") },
		OnMessage:   func(_ string, data []byte) { post(relay.InboundMessage{Raw: data}) },
		OnError:     func(_, message string) { view.Notice("Server: " + message) },
	}, transport.WithLogger(logger))
	if err != nil {
		return err
	}

	r = relay.New(relay.Config{RoomID: opts.sessionID, LeaveURL: leaveURL}, client, view, relay.WithLogger(logger))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		if err := r.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return errors.Wrap(err, "relay stopped")
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return client.Run(gctx)
	})

	// The input loop is outside the group: a blocked terminal read must not
	// keep Wait from returning after the session ends.
	go func() {
		defer cancel()
		if err := readInput(gctx, r, view, newLineReader(in, opts.lineLimit())); err != nil {
			logger.Debug().Err(err).Msg("input loop stopped")
		}
	}()

	err = g.Wait()
	client.Close()
	return err
}

// readInput turns terminal lines into relay events. Each plain line is typed
// into the input field and submitted with Enter.
func readInput(ctx context.Context, r *relay.Relay, view *TerminalView, lines *lineReader) error {
	confirm := promptConfirm(lines, view)

	for {
		line, err := lines.next()
		if errors.Is(err, errLineTooLong) {
			view.Notice(fmt.Sprintf("Message not sent: longer than %d bytes.", lines.limit))
			continue
		}
		if err != nil {
			return err
		}

		switch strings.TrimSpace(line) {
		case "/pause":
			err = r.Post(ctx, relay.PauseToggled{})
		case "/mute":
			err = r.Post(ctx, relay.MuteToggled{})
		case "/leave":
			res, err := r.RequestLeave(ctx, confirm)
			if err != nil {
				return err
			}
			if res.Left {
				view.Notice("Left the session. Continue at " + res.URL)
				return nil
			}
			continue
		default:
			view.Type(line)
			err = r.Post(ctx, relay.KeyPressed{Key: relay.KeyEvent{Code: relay.KeyCodeEnter, Key: "Enter"}})
		}
		if err != nil {
			return err
		}

		// Wait for the event to be applied so the next line cannot overwrite
		// the input field before it is read.
		if _, err := r.Snapshot(ctx); err != nil {
			return err
		}
	}
}

var errLineTooLong = errors.New("line too long")

// lineReader hands out one line per call and doubles as an io.Reader that
// yields exactly one line per Read, so prompts can share the terminal without
// losing buffered input. Lines longer than limit are consumed and reported as
// errLineTooLong without being held in memory.
type lineReader struct {
	br      *bufio.Reader
	limit   int
	pending []byte
}

func newLineReader(in io.Reader, limit int) *lineReader {
	return &lineReader{br: bufio.NewReader(in), limit: limit}
}

func (l *lineReader) next() (string, error) {
	var (
		line    []byte
		tooLong bool
	)
	for {
		chunk, err := l.br.ReadSlice('\n')
		if !tooLong {
			// two extra bytes for a trailing "\r\n"
			if len(line)+len(chunk) > l.limit+2 {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			if len(line) == 0 && !tooLong {
				return "", io.EOF
			}
			break
		}
		if err != nil {
			return "", errors.Wrap(err, "read input")
		}
		break
	}

	text := strings.TrimSuffix(strings.TrimSuffix(string(line), "\n"), "\r")
	if tooLong || len(text) > l.limit {
		return "", errLineTooLong
	}
	return text, nil
}

func (l *lineReader) Read(p []byte) (int, error) {
	if len(l.pending) == 0 {
		line, err := l.next()
		if err != nil {
			return 0, err
		}
		l.pending = []byte(line + "\n")
	}
	n := copy(p, l.pending)
	l.pending = l.pending[n:]
	return n, nil
}
