package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"sync"
	"time"

	"C90FM/logger"
	"C90FM/model"
)

const (
	connectRetries  = 20
	connectInterval = 100 * time.Millisecond
	commandTimeout  = 3 * time.Second
)

// mpvEngine drives an mpv process over its JSON IPC socket. mpv only knows
// URIs, so the engine keeps a mirror of the playlist's track metadata and
// serves Queue/ActiveTrack from it.
type mpvEngine struct {
	binPath    string
	socketPath string

	mu      sync.Mutex
	cmd     *exec.Cmd
	conn    net.Conn
	reqID   int64
	pending map[int64]chan mpvReply
	tracks  []model.Track
	pos     int // last observed playlist position, -1 when idle

	events chan Event
}

type mpvReply struct {
	Error string
	Data  json.RawMessage
}

// mpvMessage is a single line read from the IPC socket: either a command
// reply (request_id set) or an event.
type mpvMessage struct {
	RequestID int64           `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	Event     string          `json:"event,omitempty"`
	Name      string          `json:"name,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func newMPVEngine(binPath, socketPath string) (*mpvEngine, error) {
	e := &mpvEngine{
		binPath:    binPath,
		socketPath: socketPath,
		pending:    make(map[int64]chan mpvReply),
		pos:        -1,
		events:     make(chan Event, 16),
	}

	e.mu.Lock()
	err := e.launchLocked()
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (e *mpvEngine) launchLocked() error {
	_ = os.Remove(e.socketPath)

	cmd := exec.Command(e.binPath,
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--input-ipc-server="+e.socketPath,
	)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start engine process: %w", err)
	}

	var conn net.Conn
	var err error
	for i := 0; i < connectRetries; i++ {
		conn, err = net.Dial("unix", e.socketPath)
		if err == nil {
			break
		}
		time.Sleep(connectInterval)
	}
	if err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("failed to connect to engine socket: %w", err)
	}

	e.cmd = cmd
	e.conn = conn
	go e.readLoop(conn)

	// Property observation drives the event stream.
	go func() {
		if _, err := e.command("observe_property", 1, "pause"); err != nil {
			logger.Warn("failed to observe engine pause state", logger.ErrorField(err))
		}
		if _, err := e.command("observe_property", 2, "playlist-pos"); err != nil {
			logger.Warn("failed to observe engine playlist position", logger.ErrorField(err))
		}
	}()

	return nil
}

func (e *mpvEngine) Available() bool { return true }

// Setup is idempotent: when the IPC socket still answers, the engine is
// already set up and nothing happens. Only a dead process triggers a
// relaunch; there is no retry loop.
func (e *mpvEngine) Setup(ctx context.Context) error {
	if _, err := e.command("get_property", "idle-active"); err == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.launchLocked()
}

func (e *mpvEngine) Add(tracks []model.Track) error {
	for _, t := range tracks {
		uri := string(t.AudioSource)
		if uri == "" {
			continue
		}
		if _, err := e.command("loadfile", uri, "append"); err != nil {
			return err
		}
		e.mu.Lock()
		e.tracks = append(e.tracks, t)
		e.mu.Unlock()
	}
	return nil
}

func (e *mpvEngine) Reset() error {
	if _, err := e.command("stop"); err != nil {
		return err
	}
	if _, err := e.command("playlist-clear"); err != nil {
		return err
	}
	e.mu.Lock()
	e.tracks = nil
	e.pos = -1
	e.mu.Unlock()
	return nil
}

func (e *mpvEngine) Play() error {
	_, err := e.command("set_property", "pause", false)
	return err
}

func (e *mpvEngine) Pause() error {
	_, err := e.command("set_property", "pause", true)
	return err
}

func (e *mpvEngine) State() (model.PlaybackState, error) {
	data, err := e.command("get_property", "idle-active")
	if err != nil {
		return model.StateNone, err
	}
	var idle bool
	if err := json.Unmarshal(data, &idle); err == nil && idle {
		return model.StateReady, nil
	}

	data, err = e.command("get_property", "pause")
	if err != nil {
		return model.StateNone, err
	}
	var paused bool
	if err := json.Unmarshal(data, &paused); err != nil {
		return model.StateNone, err
	}
	if paused {
		return model.StatePaused, nil
	}
	return model.StatePlaying, nil
}

func (e *mpvEngine) SkipToNext() error {
	e.mu.Lock()
	pos, n := e.pos, len(e.tracks)
	e.mu.Unlock()
	if pos >= n-1 {
		return fmt.Errorf("no next track in engine playlist")
	}
	_, err := e.command("playlist-next", "force")
	return err
}

func (e *mpvEngine) SkipToPrevious() error {
	e.mu.Lock()
	pos := e.pos
	e.mu.Unlock()
	if pos <= 0 {
		return fmt.Errorf("no previous track in engine playlist")
	}
	_, err := e.command("playlist-prev", "force")
	return err
}

func (e *mpvEngine) SkipTo(index int) error {
	e.mu.Lock()
	n := len(e.tracks)
	e.mu.Unlock()
	if index < 0 || index >= n {
		return fmt.Errorf("playlist index %d out of range", index)
	}
	_, err := e.command("set_property", "playlist-pos", index)
	return err
}

func (e *mpvEngine) SeekTo(ms int64) error {
	_, err := e.command("seek", float64(ms)/1000.0, "absolute")
	return err
}

func (e *mpvEngine) Progress() (model.Progress, error) {
	var p model.Progress
	if data, err := e.command("get_property", "time-pos"); err == nil {
		var sec float64
		if json.Unmarshal(data, &sec) == nil {
			p.Position = int64(sec * 1000)
		}
	}
	data, err := e.command("get_property", "duration")
	if err != nil {
		return p, err
	}
	var sec float64
	if json.Unmarshal(data, &sec) == nil {
		p.Duration = int64(sec * 1000)
	}
	return p, nil
}

func (e *mpvEngine) Queue() ([]model.Track, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.Track, len(e.tracks))
	copy(out, e.tracks)
	return out, nil
}

func (e *mpvEngine) ActiveTrack() (*model.Track, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pos < 0 || e.pos >= len(e.tracks) {
		return nil, nil
	}
	t := e.tracks[e.pos]
	return &t, nil
}

func (e *mpvEngine) UpdateMetadata(index int, patch MetadataPatch) error {
	e.mu.Lock()
	if index < 0 || index >= len(e.tracks) {
		e.mu.Unlock()
		return fmt.Errorf("playlist index %d out of range", index)
	}
	if patch.Title != "" {
		e.tracks[index].Title = patch.Title
	}
	if patch.Artist != "" {
		e.tracks[index].Subtitle = patch.Artist
	}
	if patch.CoverURL != "" {
		e.tracks[index].CoverURL = patch.CoverURL
	}
	current := index == e.pos
	title := e.tracks[index].Title
	artist := e.tracks[index].Subtitle
	e.mu.Unlock()

	// Keep the OS media display in sync for the entry that is on air.
	if current && title != "" {
		display := title
		if artist != "" {
			display = artist + " - " + title
		}
		if _, err := e.command("set_property", "force-media-title", display); err != nil {
			return err
		}
	}
	return nil
}

func (e *mpvEngine) Events() <-chan Event { return e.events }

func (e *mpvEngine) Close() error {
	e.mu.Lock()
	conn := e.conn
	cmd := e.cmd
	e.conn = nil
	e.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	}
	return nil
}

// command sends one IPC command and waits for its reply.
func (e *mpvEngine) command(args ...interface{}) (json.RawMessage, error) {
	e.mu.Lock()
	if e.conn == nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("engine not connected")
	}
	e.reqID++
	id := e.reqID
	ch := make(chan mpvReply, 1)
	e.pending[id] = ch
	conn := e.conn
	e.mu.Unlock()

	payload, err := json.Marshal(map[string]interface{}{
		"command":    args,
		"request_id": id,
	})
	if err != nil {
		e.dropPending(id)
		return nil, err
	}
	payload = append(payload, '\n')

	if _, err := conn.Write(payload); err != nil {
		e.dropPending(id)
		return nil, fmt.Errorf("engine write failed: %w", err)
	}

	select {
	case reply := <-ch:
		if reply.Error != "" && reply.Error != "success" {
			return nil, fmt.Errorf("engine command %v: %s", args[0], reply.Error)
		}
		return reply.Data, nil
	case <-time.After(commandTimeout):
		e.dropPending(id)
		return nil, fmt.Errorf("engine command %v timed out", args[0])
	}
}

func (e *mpvEngine) dropPending(id int64) {
	e.mu.Lock()
	delete(e.pending, id)
	e.mu.Unlock()
}

func (e *mpvEngine) readLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		var msg mpvMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}

		if msg.Event == "" {
			e.mu.Lock()
			ch := e.pending[msg.RequestID]
			delete(e.pending, msg.RequestID)
			e.mu.Unlock()
			if ch != nil {
				ch <- mpvReply{Error: msg.Error, Data: msg.Data}
			}
			continue
		}

		e.handleEvent(msg)
	}
}

func (e *mpvEngine) handleEvent(msg mpvMessage) {
	if msg.Event != "property-change" {
		return
	}

	switch msg.Name {
	case "pause":
		var paused bool
		if err := json.Unmarshal(msg.Data, &paused); err != nil {
			return
		}
		state := model.StatePlaying
		if paused {
			state = model.StatePaused
		}
		e.emit(Event{Type: EventStateChanged, State: state})

	case "playlist-pos":
		var pos int
		if err := json.Unmarshal(msg.Data, &pos); err != nil {
			return
		}
		e.mu.Lock()
		e.pos = pos
		var track *model.Track
		if pos >= 0 && pos < len(e.tracks) {
			t := e.tracks[pos]
			track = &t
		}
		e.mu.Unlock()
		if track != nil {
			e.emit(Event{Type: EventTrackChanged, Track: track})
		}
	}
}

// emit delivers an event without ever blocking the read loop; a consumer
// that falls behind loses events rather than stalling IPC replies.
func (e *mpvEngine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}
