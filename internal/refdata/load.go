package refdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/normalize"
	"github.com/gyeh/cbgtariff/internal/parquetread"
)

// LoadPostgres reads every reference table into memory. The version is
// derived from the active dataset loads so a reload after a new ingest
// produces a different version string.
func LoadPostgres(ctx context.Context, pool *pgxpool.Pool) (Data, error) {
	var d Data

	rows, err := pool.Query(ctx,
		`SELECT diagnosis, COALESCE(procedure_signature, ''), service_context, grouping_code, frequency
		 FROM ref.case_history`)
	if err != nil {
		return d, fmt.Errorf("load case history: %w", err)
	}
	for rows.Next() {
		var (
			c   model.HistoricalCase
			svc string
		)
		if err := rows.Scan(&c.Diagnosis, &c.Signature, &svc, &c.GroupingCode, &c.Frequency); err != nil {
			rows.Close()
			return d, fmt.Errorf("scan case history: %w", err)
		}
		c.Service = model.ServiceContext(svc)
		d.Cases = append(d.Cases, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return d, fmt.Errorf("load case history: %w", err)
	}

	rows, err = pool.Query(ctx,
		`SELECT chapter, range_start, range_end, cmg, description, priority FROM ref.chapter_mappings`)
	if err != nil {
		return d, fmt.Errorf("load chapter mappings: %w", err)
	}
	for rows.Next() {
		var (
			m                model.ChapterMapping
			start, end, prio int32
		)
		if err := rows.Scan(&m.Chapter, &start, &end, &m.CMG, &m.Description, &prio); err != nil {
			rows.Close()
			return d, fmt.Errorf("scan chapter mappings: %w", err)
		}
		m.RangeStart, m.RangeEnd, m.Priority = int(start), int(end), int(prio)
		d.Chapters = append(d.Chapters, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return d, fmt.Errorf("load chapter mappings: %w", err)
	}

	rows, err = pool.Query(ctx,
		`SELECT code, chapter_start, chapter_end, category, body_system, is_major, similar_codes FROM ref.procedures`)
	if err != nil {
		return d, fmt.Errorf("load procedures: %w", err)
	}
	for rows.Next() {
		var p model.ProcedureInfo
		if err := rows.Scan(&p.Code, &p.ChapterStart, &p.ChapterEnd, &p.Category, &p.BodySystem, &p.IsMajor, &p.Similar); err != nil {
			rows.Close()
			return d, fmt.Errorf("scan procedures: %w", err)
		}
		d.Procedures = append(d.Procedures, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return d, fmt.Errorf("load procedures: %w", err)
	}

	rows, err = pool.Query(ctx,
		`SELECT grouping_code, service, regional, hospital_class, hospital_type,
		        tarif_kelas_1, tarif_kelas_2, tarif_kelas_3, description, active
		 FROM ref.tariffs WHERE active`)
	if err != nil {
		return d, fmt.Errorf("load tariffs: %w", err)
	}
	for rows.Next() {
		var (
			t   model.TariffRow
			svc string
		)
		if err := rows.Scan(&t.GroupingCode, &svc, &t.Regional, &t.HospitalClass, &t.HospitalType,
			&t.Tier1, &t.Tier2, &t.Tier3, &t.Description, &t.Active); err != nil {
			rows.Close()
			return d, fmt.Errorf("scan tariffs: %w", err)
		}
		t.Service = model.TariffService(svc)
		d.Tariffs = append(d.Tariffs, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return d, fmt.Errorf("load tariffs: %w", err)
	}

	rows, err = pool.Query(ctx,
		`SELECT table_name || ':' || load_id::text FROM ref.dataset_loads
		 WHERE status = 'active' ORDER BY table_name`)
	if err != nil {
		return d, fmt.Errorf("load dataset versions: %w", err)
	}
	var parts []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return d, fmt.Errorf("scan dataset versions: %w", err)
		}
		parts = append(parts, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return d, fmt.Errorf("load dataset versions: %w", err)
	}
	d.Version = "postgres"
	if len(parts) > 0 {
		d.Version = strings.Join(parts, ",")
	}
	return d, nil
}

// ParquetFiles names the four reference files inside a snapshot directory.
var ParquetFiles = map[string]string{
	model.CasesTable.Name:      "case_history.parquet",
	model.ChaptersTable.Name:   "chapter_mappings.parquet",
	model.ProceduresTable.Name: "procedures.parquet",
	model.TariffsTable.Name:    "tariffs.parquet",
}

// LoadParquet reads the four reference files from dir. Rows that fail
// normalization are skipped and logged, matching the ingest pipeline.
func LoadParquet(dir string, log zerolog.Logger) (Data, error) {
	var d Data
	var hashes []string

	for _, table := range model.AllRefTables {
		path := filepath.Join(dir, ParquetFiles[table.Name])
		if _, err := os.Stat(path); err != nil {
			return d, fmt.Errorf("%s: %w", table.Name, err)
		}
		dg, err := normalize.FileDigest(path)
		if err != nil {
			return d, fmt.Errorf("%s: %w", table.Name, err)
		}
		hashes = append(hashes, table.Name+":"+dg.Short())

		var rejected int64
		reject := func(rowNum int64, err error) {
			rejected++
			log.Warn().Err(err).Str("table", table.Name).Int64("row", rowNum).Msg("row rejected")
		}

		var read int64
		switch table.Name {
		case model.CasesTable.Name:
			read, err = parquetread.Each(path, func(n int64, r *model.CaseHistoryRecord) error {
				c, err := normalize.ToHistoricalCase(r)
				if err != nil {
					reject(n, err)
					return nil
				}
				d.Cases = append(d.Cases, c)
				return nil
			})
		case model.ChaptersTable.Name:
			read, err = parquetread.Each(path, func(n int64, r *model.ChapterMappingRecord) error {
				m, err := normalize.ToChapterMapping(r)
				if err != nil {
					reject(n, err)
					return nil
				}
				d.Chapters = append(d.Chapters, m)
				return nil
			})
		case model.ProceduresTable.Name:
			read, err = parquetread.Each(path, func(n int64, r *model.ProcedureRecord) error {
				p, err := normalize.ToProcedureInfo(r)
				if err != nil {
					reject(n, err)
					return nil
				}
				d.Procedures = append(d.Procedures, p)
				return nil
			})
		case model.TariffsTable.Name:
			read, err = parquetread.Each(path, func(n int64, r *model.TariffRecord) error {
				t, err := normalize.ToTariffRow(r)
				if err != nil {
					reject(n, err)
					return nil
				}
				d.Tariffs = append(d.Tariffs, t)
				return nil
			})
		}
		if err != nil {
			return d, fmt.Errorf("%s: %w", table.Name, err)
		}
		log.Info().
			Str("table", table.Name).
			Int64("rows_read", read).
			Int64("rows_rejected", rejected).
			Msg("reference file loaded")
	}

	d.Version = "parquet:" + strings.Join(hashes, ",")
	return d, nil
}
