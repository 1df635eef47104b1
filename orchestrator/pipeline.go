package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/maastricht-university/edmo-der/clients"
	cfg "github.com/maastricht-university/edmo-der/config"
	"github.com/maastricht-university/edmo-der/der"
	"github.com/maastricht-university/edmo-der/metrics"
	"github.com/maastricht-university/edmo-der/rttm"
)

var (
	ErrNoPairs    = errors.New("manifest has no pairs")
	ErrNoDiarizer = errors.New("services.diarization.url is not configured")
	ErrAllFailed  = errors.New("no pair could be scored")
)

type Pipeline struct {
	cfg  *cfg.Root
	opts der.Options
	http *clients.HTTP
	log  logrus.FieldLogger
}

func NewPipeline(c *cfg.Root, log logrus.FieldLogger) (*Pipeline, error) {
	opts, err := c.Scoring.Options()
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: c, opts: opts, http: clients.NewHTTP(c.Services.Timeout()), log: log}, nil
}

// Score runs the scorer on in-memory timelines and records metrics.
func (p *Pipeline) Score(name string, ref, sys []der.Segment) *Report {
	return p.score(name, ref, sys, p.opts)
}

func (p *Pipeline) score(name string, ref, sys []der.Segment, opts der.Options) *Report {
	res := der.ComputeWith(ref, sys, opts)
	metrics.RecordResult(res)

	refTime, refOverlap := speakerStats(ref)
	sysTime, _ := speakerStats(sys)
	r := &Report{
		Name:           name,
		Collar:         opts.Collar,
		TieBreak:       opts.TieBreak.String(),
		Metrics:        res.Metrics,
		Mapping:        res.Mapping,
		RefSpeakerTime: refTime,
		SysSpeakerTime: sysTime,
		RefOverlap:     refOverlap,
		Intervals:      res.Intervals,
	}
	p.log.WithFields(logrus.Fields{
		"pair":      name,
		"der":       fmt.Sprintf("%.2f", res.Metrics.DER),
		"scored":    fmt.Sprintf("%.3f", res.Metrics.Scored),
		"intervals": len(res.Intervals),
		"mapped":    len(res.Mapping),
	}).Info("scored")
	return r
}

// ScoreFiles parses both RTTM files of the pair and scores them.
func (p *Pipeline) ScoreFiles(ctx context.Context, pair Pair) (*Report, error) {
	return p.scoreFiles(ctx, pair, p.opts)
}

func (p *Pipeline) scoreFiles(ctx context.Context, pair Pair, opts der.Options) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ref, err := rttm.ParseFile(pair.Reference)
	if err != nil {
		metrics.RecordFailure()
		return nil, fmt.Errorf("reference: %w", err)
	}
	sys, err := rttm.ParseFile(pair.System)
	if err != nil {
		metrics.RecordFailure()
		return nil, fmt.Errorf("system: %w", err)
	}
	if len(ref.Segments) == 0 {
		p.log.WithField("pair", pair.Name).Warn("reference has no speech, metrics will be zero")
	}
	r := p.score(pair.Name, ref.Segments, sys.Segments, opts)
	r.Reference, r.System = pair.Reference, pair.System
	return r, nil
}

// Diarize sends audio to the diarization service and returns its segments.
func (p *Pipeline) Diarize(ctx context.Context, audioPath string) ([]der.Segment, error) {
	url := p.cfg.Services.Diarization.URL
	if url == "" {
		return nil, ErrNoDiarizer
	}
	start := time.Now()
	resp, err := p.http.Diarize(ctx, url, audioPath)
	if err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{
		"audio":    audioPath,
		"segments": len(resp.Segments),
		"took":     time.Since(start).Round(time.Millisecond),
	}).Info("diarized")
	return resp.DerSegments(), nil
}

// ScoreAudio diarizes audioPath and scores the result against refPath.
func (p *Pipeline) ScoreAudio(ctx context.Context, name, refPath, audioPath string) (*Report, error) {
	ref, err := rttm.ParseFile(refPath)
	if err != nil {
		metrics.RecordFailure()
		return nil, fmt.Errorf("reference: %w", err)
	}
	sys, err := p.Diarize(ctx, audioPath)
	if err != nil {
		if ctx.Err() == nil {
			metrics.RecordFailure()
		}
		return nil, err
	}
	r := p.Score(name, ref.Segments, sys)
	r.Reference, r.System = refPath, audioPath
	return r, nil
}

// RunBatch scores every pair of the manifest, in parallel across files.
// Pairs that fail are listed in the report; the run only fails when
// nothing could be scored or ctx is cancelled.
func (p *Pipeline) RunBatch(ctx context.Context, m Manifest) (*BatchReport, error) {
	if len(m.Pairs) == 0 {
		return nil, ErrNoPairs
	}
	opts := p.opts
	if m.Collar != nil {
		opts.Collar = *m.Collar
	}

	reports := make([]*Report, len(m.Pairs))
	failures := make([]error, len(m.Pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.cfg.Batch.Workers, 1))
	for i, pair := range m.Pairs {
		i, pair := i, pair
		g.Go(func() error {
			r, err := p.scoreFiles(gctx, pair, opts)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				p.log.WithField("pair", pair.Name).WithError(err).Error("scoring failed")
				failures[i] = err
				return nil
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	br := &BatchReport{ID: uuid.NewString(), GeneratedAt: time.Now(), Collar: opts.Collar}
	for i := range m.Pairs {
		if failures[i] != nil {
			br.Failures = append(br.Failures, Failure{Name: m.Pairs[i].Name, Error: failures[i].Error()})
			continue
		}
		br.Reports = append(br.Reports, reports[i])
	}
	if len(br.Reports) == 0 {
		return br, ErrAllFailed
	}
	br.Totals = Totals(br.Reports)
	p.log.WithFields(logrus.Fields{
		"batch":  br.ID,
		"pairs":  len(br.Reports),
		"failed": len(br.Failures),
		"der":    fmt.Sprintf("%.2f", br.Totals.DER),
	}).Info("batch scored")
	return br, nil
}

// Publish sends every report to the visualization service when one is
// configured. Errors are logged and do not stop the remaining uploads.
func (p *Pipeline) Publish(ctx context.Context, sessionID, outDir string, reports []*Report) int {
	url := p.cfg.Services.Visualization.URL
	if url == "" {
		return 0
	}
	sent := 0
	for _, r := range reports {
		resp, err := p.http.Overlay(ctx, url, clients.OverlayReq{
			SessionID: sessionID,
			Name:      r.Name,
			Intervals: r.Intervals,
			Metrics:   r.Metrics,
			Mapping:   r.Mapping,
			OutputDir: outDir,
		})
		if err != nil {
			p.log.WithField("pair", r.Name).WithError(err).Warn("overlay upload failed")
			continue
		}
		p.log.WithFields(logrus.Fields{"pair": r.Name, "path": resp.Path}).Debug("overlay generated")
		sent++
	}
	return sent
}

// PairName derives a pair name from a reference path.
func PairName(refPath string) string {
	base := filepath.Base(refPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
