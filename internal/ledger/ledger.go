// Package ledger stores user profiles and their append-only transaction
// ledgers. A ledger lives inside its owner's profile document, so an append
// is a single conditional write on the owner's key.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"HoldCrypt/internal/model"
	"HoldCrypt/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const transactionsAttr = "transactions"

var (
	// ErrInvalidInput reports a locally detected malformed request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrOwnerNotFound is returned when an append targets a username without a profile.
	ErrOwnerNotFound = errors.New("owner not found")
	// ErrUserNotFound is returned by reads of a username without a profile.
	ErrUserNotFound = errors.New("user not found")
	// ErrStoreUnavailable wraps store failures that are not precondition failures.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
)

// Ledger appends transactions and reads accounts through a store.Store.
type Ledger struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

// New creates a Ledger backed by s.
func New(s store.Store, log zerolog.Logger) *Ledger {
	return &Ledger{
		store: s,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// userDoc is the stored shape of a new profile.
type userDoc struct {
	model.UserProfile
	Transactions []model.TransactionRecord `json:"transactions"`
}

// PutUser creates the profile with an empty ledger, or updates the names of an
// existing profile without touching its ledger. It reports whether the
// profile was created.
func (l *Ledger) PutUser(ctx context.Context, p model.UserProfile) (bool, error) {
	if strings.TrimSpace(p.Username) == "" {
		return false, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	doc := userDoc{UserProfile: p, Transactions: []model.TransactionRecord{}}
	err := l.store.Put(ctx, store.Users, p.Username, doc, store.Condition{MustNotExist: true})
	if err == nil {
		l.log.Info().Str("username", p.Username).Msg("user created")
		return true, nil
	}
	if !errors.Is(err, store.ErrConditionFailed) {
		return false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	patch := map[string]string{"first_name": p.FirstName, "last_name": p.LastName}
	if err := l.store.Update(ctx, store.Users, p.Username, patch); err != nil {
		return false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	l.log.Info().Str("username", p.Username).Msg("user updated")
	return false, nil
}

// Append validates rec and appends it to the end of its owner's ledger. The
// write only happens if the owner's profile exists at that moment. The
// returned record carries the assigned id and timestamp.
func (l *Ledger) Append(ctx context.Context, rec model.TransactionRecord) (model.TransactionRecord, error) {
	if err := validate(rec); err != nil {
		return model.TransactionRecord{}, err
	}

	rec.ID = l.newID()
	rec.CreatedAt = l.now()

	err := l.store.Append(ctx, store.Users, rec.Username, transactionsAttr, rec)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrConditionFailed):
		return model.TransactionRecord{}, fmt.Errorf("append to %q: %w", rec.Username, ErrOwnerNotFound)
	default:
		return model.TransactionRecord{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	l.log.Info().
		Str("username", rec.Username).
		Str("coin", rec.Coin).
		Float64("amount", rec.Amount).
		Str("tx_id", rec.ID).
		Msg("transaction appended")
	return rec, nil
}

func validate(rec model.TransactionRecord) error {
	switch {
	case strings.TrimSpace(rec.Username) == "":
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	case strings.TrimSpace(rec.Coin) == "":
		return fmt.Errorf("%w: coin is required", ErrInvalidInput)
	case math.IsNaN(rec.Amount) || math.IsInf(rec.Amount, 0):
		return fmt.Errorf("%w: amount must be a finite number", ErrInvalidInput)
	case math.IsNaN(rec.Price) || math.IsInf(rec.Price, 0):
		return fmt.Errorf("%w: price must be a finite number", ErrInvalidInput)
	}
	return nil
}

// Account reads one profile and its ledger. A malformed stored document is
// returned as a *store.DecodeError.
func (l *Ledger) Account(ctx context.Context, username string) (model.Account, error) {
	doc, err := l.store.Get(ctx, store.Users, username)
	if errors.Is(err, store.ErrNotFound) {
		return model.Account{}, fmt.Errorf("%q: %w", username, ErrUserNotFound)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return DecodeAccount(doc)
}

// ScannedAccount is one result of Scan. Err holds the decode failure of a
// malformed document; Key is always set.
type ScannedAccount struct {
	Key     string
	Account model.Account
	Err     error
}

// Scan reads every profile in one store scan. Decode failures are reported
// per account; only a store failure fails the whole call.
func (l *Ledger) Scan(ctx context.Context) ([]ScannedAccount, error) {
	docs, err := l.store.Scan(ctx, store.Users)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	out := make([]ScannedAccount, 0, len(docs))
	for _, doc := range docs {
		acc, err := DecodeAccount(doc)
		out = append(out, ScannedAccount{Key: doc.Key, Account: acc, Err: err})
	}
	return out, nil
}

// DecodeAccount converts a stored users document into an Account.
func DecodeAccount(doc store.Document) (model.Account, error) {
	d := doc.Decoder()
	acc := model.Account{
		UserProfile: model.UserProfile{
			Username:  d.NonEmptyString("username"),
			FirstName: d.String("first_name"),
			LastName:  d.String("last_name"),
		},
	}
	for _, td := range d.List(transactionsAttr) {
		acc.Ledger = append(acc.Ledger, model.TransactionRecord{
			ID:        td.OptionalString("id"),
			Username:  acc.Username,
			Coin:      td.NonEmptyString("coin"),
			Amount:    td.Float("amount"),
			Price:     td.Float("price"),
			CreatedAt: td.OptionalTime("created_at"),
		})
	}
	if err := d.Err(); err != nil {
		return model.Account{}, err
	}
	if acc.Username != doc.Key {
		return model.Account{}, &store.DecodeError{
			Table:  doc.Table,
			Key:    doc.Key,
			Field:  "username",
			Reason: fmt.Sprintf("does not match key (%q)", acc.Username),
		}
	}
	return acc, nil
}
