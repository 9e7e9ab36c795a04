package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sharkye1/Szhimatar2/internal/daemon"
	"github.com/sharkye1/Szhimatar2/internal/logging"
	"github.com/sharkye1/Szhimatar2/internal/render"
	"github.com/sharkye1/Szhimatar2/internal/services"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("Szhimatar", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun szhimatar daemon run"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger
}

// quietLog drops anything below Warn. Status, ActiveRenders, EventsSince,
// and LogTail are polled on sub-second intervals; logging each request
// would drown the log file.
func (s *service) quietLog() *slog.Logger {
	return logging.WithLevelOverride(s.log(), slog.LevelWarn)
}

func (s *service) StartRender(req StartRenderRequest, resp *StartRenderResponse) error {
	s.log().Debug("render start requested", logging.String("input", req.InputPath))
	started, err := s.daemon.StartRender(s.ctx, render.StartRequest{
		JobID:           req.JobID,
		InputPath:       req.InputPath,
		OutputPath:      req.OutputPath,
		Preset:          req.Preset,
		Args:            req.Args,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		return err
	}
	resp.Job = started
	s.log().Info("render started via IPC",
		logging.String(logging.FieldEventType, "render_start"),
		logging.String(logging.FieldJobID, started.JobID),
		logging.String("title", started.Title))
	return nil
}

func (s *service) StopRender(req StopRenderRequest, resp *StopRenderResponse) error {
	jobID := strings.TrimSpace(req.JobID)
	if jobID == "" {
		return errors.New("stop render requires a job id")
	}
	resp.Stopped = s.daemon.StopRender(jobID)
	s.log().Info("render stop requested via IPC",
		logging.String(logging.FieldEventType, "render_stop"),
		logging.String(logging.FieldJobID, jobID),
		logging.Bool("was_active", resp.Stopped))
	return nil
}

func (s *service) StopAllRenders(_ StopAllRendersRequest, resp *StopAllRendersResponse) error {
	resp.Stopped = s.daemon.StopAllRenders()
	s.log().Info("all renders stopped via IPC",
		logging.String(logging.FieldEventType, "render_stop_all"),
		logging.Int("stopped_count", resp.Stopped))
	return nil
}

func (s *service) ActiveRenders(_ ActiveRendersRequest, resp *ActiveRendersResponse) error {
	s.quietLog().Debug("active renders requested")
	resp.Jobs = s.daemon.ActiveRenders()
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	s.quietLog().Debug("status requested")
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.StartedAt = status.StartedAt
	resp.LockPath = status.LockPath
	resp.SocketPath = status.SocketPath
	resp.StatsDBPath = status.StatsDBPath
	resp.PresetsDir = status.PresetsDir
	resp.ActiveJobs = status.ActiveJobs
	resp.Dependencies = status.Dependencies
	resp.LatestEventSeq = status.LatestEventSeq
	return nil
}

func (s *service) EventsSince(req EventsSinceRequest, resp *EventsSinceResponse) error {
	s.quietLog().Debug("events requested", logging.Uint64("since", req.Seq))
	resp.Events, resp.Latest = s.daemon.EventsSince(req.Seq)
	return nil
}

func (s *service) Probe(req ProbeRequest, resp *ProbeResponse) error {
	s.log().Debug("probe requested", logging.String("path", req.Path))
	result, err := s.daemon.Probe(s.ctx, req.Path)
	if err != nil {
		return err
	}
	resp.Path = req.Path
	resp.FormatName = result.Format.FormatName
	resp.DurationSeconds = result.DurationSeconds()
	resp.SizeBytes = result.SizeBytes()
	resp.BitRate = result.BitRate()
	resp.VideoStreams = result.VideoStreamCount()
	resp.AudioStreams = result.AudioStreamCount()
	resp.SubtitleStreams = result.SubtitleStreamCount()
	resp.Streams = make([]ProbeStream, 0, len(result.Streams))
	for _, stream := range result.Streams {
		resp.Streams = append(resp.Streams, ProbeStream{
			Index:     stream.Index,
			CodecType: stream.CodecType,
			CodecName: stream.CodecName,
			Width:     stream.Width,
			Height:    stream.Height,
			Channels:  stream.Channels,
			Language:  stream.Tags.Language,
			Title:     stream.Tags.Title,
		})
	}
	resp.RawJSON = string(result.RawJSON())
	return nil
}

func (s *service) ListPresets(_ ListPresetsRequest, resp *ListPresetsResponse) error {
	list, err := s.daemon.ListPresets()
	if err != nil {
		return err
	}
	resp.Presets = list
	return nil
}

func (s *service) GetPreset(req GetPresetRequest, resp *GetPresetResponse) error {
	preset, err := s.daemon.GetPreset(req.Name)
	if err != nil {
		return err
	}
	resp.Preset = preset
	return nil
}

func (s *service) SavePreset(req SavePresetRequest, resp *SavePresetResponse) error {
	if err := s.daemon.SavePreset(req.Preset); err != nil {
		return err
	}
	resp.Saved = true
	s.log().Info("preset saved via IPC",
		logging.String(logging.FieldEventType, "preset_save"),
		logging.String("preset", req.Preset.Name))
	return nil
}

func (s *service) DeletePreset(req DeletePresetRequest, resp *DeletePresetResponse) error {
	if err := s.daemon.DeletePreset(req.Name); err != nil {
		// Missing presets report Deleted=false rather than erroring so
		// callers can keep delete idempotent.
		if errors.Is(err, services.ErrNotFound) {
			resp.Deleted = false
			return nil
		}
		return err
	}
	resp.Deleted = true
	s.log().Info("preset deleted via IPC",
		logging.String(logging.FieldEventType, "preset_delete"),
		logging.String("preset", req.Name))
	return nil
}

func (s *service) StatsSummary(req StatsSummaryRequest, resp *StatsSummaryResponse) error {
	summary, err := s.daemon.StatsSummary(s.ctx)
	if err != nil {
		return err
	}
	recent, err := s.daemon.RecentRenders(s.ctx, req.RecentLimit)
	if err != nil {
		return err
	}
	resp.Summary = summary
	resp.Recent = recent
	return nil
}

func (s *service) StatsExport(_ StatsExportRequest, resp *StatsExportResponse) error {
	data, err := s.daemon.StatsExport(s.ctx)
	if err != nil {
		return err
	}
	resp.JSON = string(data)
	return nil
}

func (s *service) StatsClear(_ StatsClearRequest, resp *StatsClearResponse) error {
	if err := s.daemon.StatsClear(s.ctx); err != nil {
		return err
	}
	resp.Cleared = true
	s.log().Info("render history cleared via IPC",
		logging.String(logging.FieldEventType, "stats_clear"))
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	s.quietLog().Debug("log tail requested", logging.Uint64("since", req.Since))
	hub := s.daemon.Hub()
	if hub == nil {
		resp.Next = req.Since
		return nil
	}

	if req.Tail {
		events, next := hub.Tail(req.Limit)
		resp.Events = events
		resp.Next = next
		return nil
	}

	// The ring only holds recent events; older ranges come from the
	// archive file when one is wired.
	if archive := s.daemon.Archive(); archive != nil && req.Since+1 < hub.FirstSequence() {
		events, next, err := archive.ReadSince(req.Since, req.Limit)
		if err != nil {
			return err
		}
		resp.Events = events
		resp.Next = next
		return nil
	}

	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if req.Follow && wait <= 0 {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait)
		defer cancel()
	}

	events, next, err := hub.Fetch(ctx, req.Since, req.Limit, req.Follow)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp.Events = events
	resp.Next = next
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
