/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. It contains all SQL touching the assets, distributions,
 * batch_payouts, holders and blockchain_event_listener_config tables.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tokenstudio/mass-payout-service/internal/domain"
)

const uniqueViolationCode = "23505"

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// --- Assets ---

const assetColumns = `id, hedera_token_address, evm_address, name, symbol, decimals, paused, cash_flow_contract_id, created_at, updated_at`

func scanAsset(row pgx.Row) (*domain.Asset, error) {
	var a domain.Asset
	err := row.Scan(&a.ID, &a.HederaTokenAddress, &a.EvmAddress, &a.Name, &a.Symbol,
		&a.Decimals, &a.Paused, &a.CashFlowContractID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	return &a, nil
}

// CreateAsset persists a new asset mirror. A duplicate hedera token address
// surfaces as ErrAssetAlreadyExists.
func (r *PostgresRepository) CreateAsset(ctx context.Context, asset *domain.Asset) error {
	query := `
		INSERT INTO assets (` + assetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query, asset.ID, asset.HederaTokenAddress, asset.EvmAddress,
		asset.Name, asset.Symbol, asset.Decimals, asset.Paused, asset.CashFlowContractID,
		asset.CreatedAt, asset.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrAssetAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) FindAssetByID(ctx context.Context, assetID uuid.UUID) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`
	return scanAsset(r.db.QueryRow(ctx, query, assetID))
}

func (r *PostgresRepository) FindAssetByHederaTokenAddress(ctx context.Context, address string) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE hedera_token_address = $1`
	return scanAsset(r.db.QueryRow(ctx, query, address))
}

func (r *PostgresRepository) FindAssetByEvmAddress(ctx context.Context, evmAddress string) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE lower(evm_address) = lower($1)`
	return scanAsset(r.db.QueryRow(ctx, query, evmAddress))
}

func (r *PostgresRepository) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets ORDER BY created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// UpdateAssetChainState refreshes the locally mirrored on-chain facts.
func (r *PostgresRepository) UpdateAssetChainState(ctx context.Context, assetID uuid.UUID, name, symbol string, decimals int, paused bool) error {
	query := `
		UPDATE assets
		SET name = $2, symbol = $3, decimals = $4, paused = $5, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, assetID, name, symbol, decimals, paused)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAssetNotFound
	}
	return nil
}

// --- Distributions ---

const distributionColumns = `id, asset_id, status, type, payout_subtype, execute_at, recurrency, amount, amount_type, concept, created_at, updated_at`

func scanDistribution(row pgx.Row) (*domain.Distribution, error) {
	var d domain.Distribution
	var subtype *string
	var recurrency *string
	err := row.Scan(&d.ID, &d.AssetID, &d.Status, &d.Type, &subtype, &d.ExecuteAt,
		&recurrency, &d.Amount, &d.AmountType, &d.Concept, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDistributionNotFound
		}
		return nil, err
	}
	if subtype != nil {
		st := domain.PayoutSubtype(*subtype)
		d.PayoutSubtype = &st
	}
	if recurrency != nil {
		rc := domain.Recurrency(*recurrency)
		d.Recurrency = &rc
	}
	return &d, nil
}

func (r *PostgresRepository) CreateDistribution(ctx context.Context, dist *domain.Distribution) error {
	query := `
		INSERT INTO distributions (` + distributionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query, dist.ID, dist.AssetID, dist.Status, dist.Type,
		dist.PayoutSubtype, dist.ExecuteAt, dist.Recurrency, dist.Amount, dist.AmountType,
		dist.Concept, dist.CreatedAt, dist.UpdatedAt)
	return err
}

func (r *PostgresRepository) FindDistributionByID(ctx context.Context, distributionID uuid.UUID) (*domain.Distribution, error) {
	query := `SELECT ` + distributionColumns + ` FROM distributions WHERE id = $1`
	return scanDistribution(r.db.QueryRow(ctx, query, distributionID))
}

func (r *PostgresRepository) ListDistributions(ctx context.Context, limit, offset int) ([]domain.Distribution, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT ` + distributionColumns + ` FROM distributions ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDistributions(rows)
}

func collectDistributions(rows pgx.Rows) ([]domain.Distribution, error) {
	var dists []domain.Distribution
	for rows.Next() {
		d, err := scanDistribution(rows)
		if err != nil {
			return nil, err
		}
		dists = append(dists, *d)
	}
	return dists, rows.Err()
}

func (r *PostgresRepository) UpdateDistributionStatus(ctx context.Context, distributionID uuid.UUID, status domain.DistributionStatus) error {
	query := `UPDATE distributions SET status = $2, updated_at = now() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, distributionID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDistributionNotFound
	}
	return nil
}

// CancelScheduledDistribution moves a SCHEDULED distribution to CANCELLED.
// The status guard lives in the WHERE clause so a concurrent executor and a
// cancel request cannot both win.
func (r *PostgresRepository) CancelScheduledDistribution(ctx context.Context, distributionID uuid.UUID) (*domain.Distribution, error) {
	query := `
		UPDATE distributions
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING ` + distributionColumns
	dist, err := scanDistribution(r.db.QueryRow(ctx, query, distributionID,
		domain.DistributionStatusCancelled, domain.DistributionStatusScheduled))
	if err == nil {
		return dist, nil
	}
	if !errors.Is(err, ErrDistributionNotFound) {
		return nil, err
	}

	// No row matched: distinguish "missing" from "not cancellable".
	if _, findErr := r.FindDistributionByID(ctx, distributionID); findErr != nil {
		return nil, findErr
	}
	return nil, domain.ErrDistributionNotCancellable
}

func (r *PostgresRepository) FindScheduledDistributionsInWindow(ctx context.Context, start, end time.Time) ([]domain.Distribution, error) {
	query := `
		SELECT ` + distributionColumns + `
		FROM distributions
		WHERE status = $1 AND execute_at IS NOT NULL AND execute_at BETWEEN $2 AND $3
		ORDER BY execute_at
	`
	rows, err := r.db.Query(ctx, query, domain.DistributionStatusScheduled, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDistributions(rows)
}

func (r *PostgresRepository) FindScheduledAutomatedDistributionsByEvmAddress(ctx context.Context, evmAddress string) ([]domain.Distribution, error) {
	query := `
		SELECT d.id, d.asset_id, d.status, d.type, d.payout_subtype, d.execute_at, d.recurrency,
		       d.amount, d.amount_type, d.concept, d.created_at, d.updated_at
		FROM distributions d
		JOIN assets a ON a.id = d.asset_id
		WHERE d.status = $1 AND d.payout_subtype = $2 AND lower(a.evm_address) = lower($3)
	`
	rows, err := r.db.Query(ctx, query, domain.DistributionStatusScheduled, domain.PayoutSubtypeAutomated, evmAddress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDistributions(rows)
}

// --- Batch payouts and holders ---

const batchPayoutColumns = `id, distribution_id, name, hedera_transaction_id, hedera_transaction_hash, holders_number, status, created_at, updated_at`
const holderColumns = `id, batch_payout_id, holder_hedera_address, holder_evm_address, retry_counter, status, last_error, next_retry_at, amount, created_at, updated_at`

func scanBatchPayout(row pgx.Row) (*domain.BatchPayout, error) {
	var b domain.BatchPayout
	err := row.Scan(&b.ID, &b.DistributionID, &b.Name, &b.HederaTransactionID,
		&b.HederaTransactionHash, &b.HoldersNumber, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBatchPayoutNotFound
		}
		return nil, err
	}
	return &b, nil
}

func scanHolder(row pgx.Row) (*domain.Holder, error) {
	var h domain.Holder
	err := row.Scan(&h.ID, &h.BatchPayoutID, &h.HederaAddress, &h.EvmAddress,
		&h.RetryCounter, &h.Status, &h.LastError, &h.NextRetryAt, &h.Amount,
		&h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// CreateBatchPayoutWithHolders persists the batch record and its holder rows
// in one transaction so a partially written batch can never be observed.
func (r *PostgresRepository) CreateBatchPayoutWithHolders(ctx context.Context, batch *domain.BatchPayout, holders []domain.Holder) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batchQuery := `
		INSERT INTO batch_payouts (` + batchPayoutColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := tx.Exec(ctx, batchQuery, batch.ID, batch.DistributionID, batch.Name,
		batch.HederaTransactionID, batch.HederaTransactionHash, batch.HoldersNumber,
		batch.Status, batch.CreatedAt, batch.UpdatedAt); err != nil {
		return fmt.Errorf("insert batch payout: %w", err)
	}

	holderQuery := `
		INSERT INTO holders (` + holderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	for i := range holders {
		h := &holders[i]
		if _, err := tx.Exec(ctx, holderQuery, h.ID, h.BatchPayoutID, h.HederaAddress,
			h.EvmAddress, h.RetryCounter, h.Status, h.LastError, h.NextRetryAt, h.Amount,
			h.CreatedAt, h.UpdatedAt); err != nil {
			return fmt.Errorf("insert holder %s: %w", h.EvmAddress, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) UpdateBatchPayoutStatus(ctx context.Context, batchPayoutID uuid.UUID, status domain.BatchPayoutStatus) error {
	query := `UPDATE batch_payouts SET status = $2, updated_at = now() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, batchPayoutID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBatchPayoutNotFound
	}
	return nil
}

func (r *PostgresRepository) FindBatchPayoutByID(ctx context.Context, batchPayoutID uuid.UUID) (*domain.BatchPayout, error) {
	query := `SELECT ` + batchPayoutColumns + ` FROM batch_payouts WHERE id = $1`
	return scanBatchPayout(r.db.QueryRow(ctx, query, batchPayoutID))
}

func (r *PostgresRepository) ListBatchPayoutsByDistribution(ctx context.Context, distributionID uuid.UUID) ([]domain.BatchPayout, error) {
	query := `SELECT ` + batchPayoutColumns + ` FROM batch_payouts WHERE distribution_id = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, distributionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []domain.BatchPayout
	for rows.Next() {
		b, err := scanBatchPayout(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}

func (r *PostgresRepository) ListHoldersByBatchPayout(ctx context.Context, batchPayoutID uuid.UUID) ([]domain.Holder, error) {
	query := `SELECT ` + holderColumns + ` FROM holders WHERE batch_payout_id = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, batchPayoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holders []domain.Holder
	for rows.Next() {
		h, err := scanHolder(rows)
		if err != nil {
			return nil, err
		}
		holders = append(holders, *h)
	}
	return holders, rows.Err()
}

// UpdateHolder writes an attempt outcome back. The retry counter may only
// move forward; the guard protects against a stale writer rolling it back.
func (r *PostgresRepository) UpdateHolder(ctx context.Context, holder *domain.Holder) error {
	query := `
		UPDATE holders
		SET retry_counter = $2, status = $3, last_error = $4, next_retry_at = $5, updated_at = now()
		WHERE id = $1 AND retry_counter <= $2
	`
	_, err := r.db.Exec(ctx, query, holder.ID, holder.RetryCounter, holder.Status,
		holder.LastError, holder.NextRetryAt)
	return err
}

// ClaimDueRetryHolders atomically claims RETRYING holders whose retry time
// has arrived. Claimed rows get next_retry_at cleared inside the same
// transaction so concurrent sweeps cannot pick them up twice; SKIP LOCKED
// keeps sweeps from serializing on each other.
func (r *PostgresRepository) ClaimDueRetryHolders(ctx context.Context, now time.Time, limit int) ([]domain.Holder, error) {
	if limit <= 0 {
		limit = 100
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		SELECT ` + holderColumns + `
		FROM holders
		WHERE status = $1 AND next_retry_at IS NOT NULL AND next_retry_at <= $2
		ORDER BY next_retry_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	`
	rows, err := tx.Query(ctx, query, domain.HolderStatusRetrying, now, limit)
	if err != nil {
		return nil, err
	}

	var holders []domain.Holder
	for rows.Next() {
		h, err := scanHolder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		holders = append(holders, *h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range holders {
		if _, err := tx.Exec(ctx,
			`UPDATE holders SET next_retry_at = NULL, updated_at = now() WHERE id = $1`,
			holders[i].ID); err != nil {
			return nil, err
		}
		holders[i].NextRetryAt = nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return holders, nil
}

// RecalculateBatchPayoutStatus re-derives the aggregate batch status from
// the current holder outcomes and persists it. Used after retry attempts
// change individual holder states.
func (r *PostgresRepository) RecalculateBatchPayoutStatus(ctx context.Context, batchPayoutID uuid.UUID) (domain.BatchPayoutStatus, error) {
	var total, succeeded int
	query := `
		SELECT count(*), count(*) FILTER (WHERE status = $2)
		FROM holders
		WHERE batch_payout_id = $1
	`
	if err := r.db.QueryRow(ctx, query, batchPayoutID, domain.HolderStatusSuccess).Scan(&total, &succeeded); err != nil {
		return "", err
	}

	status := domain.AggregateBatchStatus(succeeded, total)
	if err := r.UpdateBatchPayoutStatus(ctx, batchPayoutID, status); err != nil {
		return "", err
	}
	return status, nil
}

// --- Blockchain event listener config ---

// GetListenerConfig reads the single listener config row.
func (r *PostgresRepository) GetListenerConfig(ctx context.Context) (*domain.ListenerConfig, error) {
	var cfg domain.ListenerConfig
	query := `
		SELECT mirror_node_url, contract_id, token_decimals, start_timestamp, updated_at
		FROM blockchain_event_listener_config
		WHERE id = 1
	`
	err := r.db.QueryRow(ctx, query).Scan(&cfg.MirrorNodeURL, &cfg.ContractID,
		&cfg.TokenDecimals, &cfg.StartTimestamp, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListenerConfigNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

// AdvanceListenerCursor moves the event cursor forward. The row is locked
// for the read-modify-write, and the write is skipped when the stored value
// is already at or past the candidate, keeping the cursor monotonic even
// under concurrent processors.
func (r *PostgresRepository) AdvanceListenerCursor(ctx context.Context, timestamp string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx,
		`SELECT start_timestamp FROM blockchain_event_listener_config WHERE id = 1 FOR UPDATE`,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, err := tx.Exec(ctx, `
				INSERT INTO blockchain_event_listener_config (id, mirror_node_url, contract_id, token_decimals, start_timestamp, updated_at)
				VALUES (1, '', '', 0, $1, now())
			`, timestamp); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}
		return err
	}

	if domain.CompareTimestamps(timestamp, current) <= 0 {
		return tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE blockchain_event_listener_config SET start_timestamp = $1, updated_at = now() WHERE id = 1
	`, timestamp); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
