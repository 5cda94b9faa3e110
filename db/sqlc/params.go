package db

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

// ParameterSet is one calibrated volatility term structure keyed by model id and
// calibration date. Times carries only the interior bucket boundaries; the leading
// zero and the infinity sentinel of the model grid are implied, so Vols has exactly
// len(Times)+1 entries.
type ParameterSet struct {
	ID            int64     `json:"id"`
	Date          string    `json:"date"`
	ModelID       string    `json:"model_id"`
	MeanReversion float64   `json:"mean_reversion"`
	Times         []float64 `json:"times"`
	Vols          []float64 `json:"vols"`
}

// SaveParameterSetParams are the insert arguments of SaveParameterSet.
type SaveParameterSetParams struct {
	Date          string
	ModelID       string
	MeanReversion float64
	Times         []float64
	Vols          []float64
}

const saveParameterSet = `INSERT INTO model_parameters (date, model_id, mean_reversion, times, vols)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, date, model_id, mean_reversion, times, vols`

func (store *SQLStore) SaveParameterSet(ctx context.Context, arg SaveParameterSetParams) (ParameterSet, error) {
	row := store.db.QueryRowContext(ctx, saveParameterSet,
		arg.Date, arg.ModelID, arg.MeanReversion, pq.Array(arg.Times), pq.Array(arg.Vols))
	return scanParameterSet(row)
}

const getParameterSet = `SELECT id, date, model_id, mean_reversion, times, vols
FROM model_parameters WHERE model_id = $1 AND date = $2`

func (store *SQLStore) GetParameterSet(ctx context.Context, modelID, date string) (ParameterSet, error) {
	return scanParameterSet(store.db.QueryRowContext(ctx, getParameterSet, modelID, date))
}

const getLatestParameterSet = `SELECT id, date, model_id, mean_reversion, times, vols
FROM model_parameters WHERE model_id = $1 ORDER BY date DESC, id DESC LIMIT 1`

func (store *SQLStore) GetLatestParameterSet(ctx context.Context, modelID string) (ParameterSet, error) {
	return scanParameterSet(store.db.QueryRowContext(ctx, getLatestParameterSet, modelID))
}

func scanParameterSet(row *sql.Row) (ParameterSet, error) {
	var ps ParameterSet
	var times, vols pq.Float64Array
	err := row.Scan(&ps.ID, &ps.Date, &ps.ModelID, &ps.MeanReversion, &times, &vols)
	ps.Times = []float64(times)
	ps.Vols = []float64(vols)
	return ps, err
}
