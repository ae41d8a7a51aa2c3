package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"EsgPulse/internal/domain/models"
	pkgch "EsgPulse/pkg/clickhouse"
	applogger "EsgPulse/pkg/logger"
)

// CHExperimentStore implements ExperimentStore backed by ClickHouse.
// Configs and metrics are stored as JSON columns; the table is append-only.
type CHExperimentStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHExperimentStore(ch *pkgch.Client) *CHExperimentStore {
	return &CHExperimentStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHExperimentStore) SetLogger(l *applogger.Logger) { s.l = l }

// InitSchema creates the experiments table when it does not exist yet.
func (s *CHExperimentStore) InitSchema(ctx context.Context) error {
	const ddl = `
        CREATE TABLE IF NOT EXISTS esgpulse.experiments (
            id        String,
            model_id  String,
            family    String,
            config    String,
            metrics   String,
            ts        DateTime64(3)
        ) ENGINE = MergeTree()
        ORDER BY (family, ts)
    `
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init experiments schema: %w", err)
	}
	return nil
}

func (s *CHExperimentStore) Append(ctx context.Context, rec models.ExperimentRecord) error {
	start := time.Now()
	cfgJSON, err := json.Marshal(rec.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	metJSON, err := json.Marshal(rec.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	const q = `
        INSERT INTO esgpulse.experiments (id, model_id, family, config, metrics, ts)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	if _, err := s.db.ExecContext(ctx, q, rec.ID, rec.ModelID, string(rec.Family), string(cfgJSON), string(metJSON), rec.Timestamp); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse append_experiment error",
				applogger.String("model", rec.ModelID),
				applogger.String("family", string(rec.Family)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("%w: append experiment: %v", models.ErrPersistenceFailure, err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse append_experiment ok",
			applogger.String("model", rec.ModelID),
			applogger.String("family", string(rec.Family)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHExperimentStore) History(ctx context.Context, family models.ModelFamily, limit int) ([]models.ExperimentRecord, error) {
	start := time.Now()
	const q = `
        SELECT id, model_id, family, config, metrics, ts
        FROM esgpulse.experiments
        WHERE family = ?
        ORDER BY ts DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, string(family), limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse experiment_history query error",
				applogger.String("family", string(family)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("%w: experiment history: %v", models.ErrPersistenceFailure, err)
	}
	defer rows.Close()

	out := make([]models.ExperimentRecord, 0, limit)
	for rows.Next() {
		var rec models.ExperimentRecord
		var fam, cfgJSON, metJSON string
		if err := rows.Scan(&rec.ID, &rec.ModelID, &fam, &cfgJSON, &metJSON, &rec.Timestamp); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse experiment_history scan error",
					applogger.String("family", string(family)),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan experiment: %w", err)
		}
		rec.Family = models.ModelFamily(fam)
		if err := json.Unmarshal([]byte(cfgJSON), &rec.Config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
		if err := json.Unmarshal([]byte(metJSON), &rec.Metrics); err != nil {
			return nil, fmt.Errorf("unmarshal metrics: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse experiment_history ok",
			applogger.String("family", string(family)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHExperimentStore) Close() error { return s.db.Close() }
