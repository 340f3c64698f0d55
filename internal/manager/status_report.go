package manager

import (
	"fmt"
	"time"

	"upscaled/internal/registry"
	"upscaled/pkg/types"
)

// Snapshot returns a read-only view of the session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{
		State:       m.state,
		Loaded:      m.handle != nil,
		RunProgress: m.runPct,
		ImageAsset:  m.imageAsset,
		Err:         m.errMsg,
		ErrKind:     m.errKind,
		Generation:  m.gen,
	}
	if m.model != nil {
		md := *m.model
		s.Model = &md
	}
	if m.handle != nil {
		s.Backend = m.handle.Backend
	}
	if m.progress != nil && m.state == StateLoading {
		p := *m.progress
		s.Progress = &p
	}
	if m.image != nil {
		img := *m.image
		s.Image = &img
	}
	if m.output != nil {
		out := *m.output
		s.Output = &out
	}
	return s
}

// AssetPath is the URL path under which a display asset is served.
func AssetPath(id string) string { return "/assets/" + id }

// ToAPIModel converts a catalog entry to its wire form.
func ToAPIModel(md registry.Model) types.Model {
	return types.Model{ID: md.ID, Name: md.Name, Description: md.Description, Scale: md.Scale.String()}
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	s := m.Snapshot()
	now := time.Now()
	m.mu.RLock()
	resp := types.StatusResponse{
		State:          string(s.State),
		Loaded:         s.Loaded,
		Backend:        string(s.Backend),
		RunProgress:    s.RunProgress,
		Error:          s.Err,
		ErrorKind:      s.ErrKind,
		UptimeSeconds:  int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
		LoadsTotal:     m.loads,
		RunsTotal:      m.runs,
	}
	m.mu.RUnlock()
	if s.Model != nil {
		md := ToAPIModel(*s.Model)
		resp.Model = &md
	}
	if s.Progress != nil {
		p := types.LoadProgress{Phase: string(s.Progress.Phase), File: s.Progress.File, Text: s.Progress.Text()}
		if s.Progress.Known {
			pct := s.Progress.Percent
			p.Percent = &pct
		}
		resp.Progress = &p
	}
	if s.Image != nil {
		resp.Image = &types.ImageStatus{
			Name:   s.Image.Name,
			MIME:   s.Image.MIME,
			Width:  s.Image.Width,
			Height: s.Image.Height,
			URL:    AssetPath(s.ImageAsset),
		}
	}
	if s.Output != nil {
		resp.Output = &types.OutputStatus{
			MIME:           s.Output.MIME,
			Width:          s.Output.Width,
			Height:         s.Output.Height,
			ElapsedMS:      s.Output.Elapsed.Milliseconds(),
			ProcessingTime: ProcessingTime(s.Output.Elapsed),
			URL:            AssetPath(s.Output.AssetID),
			DownloadName:   DownloadName(s.Output.Scale, m.now(), s.Output.Ext),
		}
	}
	return resp
}

// ProcessingTime formats an elapsed duration as seconds with two decimals.
func ProcessingTime(d time.Duration) string { return fmt.Sprintf("%.2fs", d.Seconds()) }
