package ledgerstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxTxnRetries bounds how many times withTxn runs a transaction that fails
// with a network error before that error is returned.
const maxTxnRetries = 3

// MongoStore is the production Store backend: accounts/{uid} and
// transactions/{auto-id} collections, read-modify-write serialized with a
// replica-set session transaction plus a version-field filter for
// defense-in-depth optimistic concurrency on the account document.
type MongoStore struct {
	client       *mongo.Client
	accounts     *mongo.Collection
	transactions *mongo.Collection
}

// NewMongoStore connects to uri and binds to database dbName's accounts and
// transactions collections.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, err
	}
	db := client.Database(dbName)
	return &MongoStore{
		client:       client,
		accounts:     db.Collection("accounts"),
		transactions: db.Collection("transactions"),
	}, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) CreateAccount(ctx context.Context, id, email string) (*Account, error) {
	acct := Account{
		ID:        id,
		Balances:  map[Currency]int64{},
		Status:    "active",
		Email:     email,
		CreatedAt: time.Now(),
	}
	_, err := s.accounts.InsertOne(ctx, acct)
	if mongo.IsDuplicateKeyError(err) {
		return s.GetAccount(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *MongoStore) CountAccounts(ctx context.Context) (int, error) {
	n, err := s.accounts.EstimatedDocumentCount(ctx)
	return int(n), err
}

func (s *MongoStore) GetAccount(ctx context.Context, id string) (*Account, error) {
	var acct Account
	err := s.accounts.FindOne(ctx, bson.M{"_id": id}).Decode(&acct)
	if err == mongo.ErrNoDocuments {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *MongoStore) ListTransactions(ctx context.Context, accountID string, limit int, startAfter string) ([]Transaction, error) {
	filter := bson.M{"accountId": accountID}

	if startAfter != "" {
		var cursorTx Transaction
		if err := s.transactions.FindOne(ctx, bson.M{"_id": startAfter}).Decode(&cursorTx); err == nil {
			filter["createdAt"] = bson.M{"$lt": cursorTx.CreatedAt}
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.transactions.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Transaction
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// withTxn runs fn inside a session transaction, rerunning it after a
// network error up to maxTxnRetries attempts in all. Any other error,
// including the version-filter miss from applyBalanceDelta, is returned at
// once.
func (s *MongoStore) withTxn(ctx context.Context, fn func(sc mongo.SessionContext) (interface{}, error)) (interface{}, error) {
	session, err := s.client.StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(ctx)

	var result interface{}
	var lastErr error
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		result, lastErr = session.WithTransaction(ctx, fn)
		if lastErr == nil {
			return result, nil
		}
		if !mongo.IsNetworkError(lastErr) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (s *MongoStore) applyBalanceDelta(sc mongo.SessionContext, accountID string, currency Currency, delta int64) (before, after int64, err error) {
	var acct Account
	if err := s.accounts.FindOne(sc, bson.M{"_id": accountID}).Decode(&acct); err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, 0, ErrAccountNotFound
		}
		return 0, 0, err
	}

	before = acct.Balances[currency]
	after = before + delta
	if after < 0 {
		return before, before, ErrInsufficientFunds
	}

	field := "balances." + string(currency)
	res, err := s.accounts.UpdateOne(sc,
		bson.M{"_id": accountID, "version": acct.Version},
		bson.M{"$set": bson.M{field: after}, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return before, after, err
	}
	if res.MatchedCount == 0 {
		return before, after, mongo.CommandError{Message: "optimistic concurrency conflict on account " + accountID}
	}
	return before, after, nil
}

func (s *MongoStore) insertTransaction(sc mongo.SessionContext, tx Transaction) error {
	_, err := s.transactions.InsertOne(sc, tx)
	return err
}

func (s *MongoStore) Debit(ctx context.Context, accountID string, currency Currency, amount int64, txType TxType, description string, metadata map[string]interface{}) (int64, error) {
	res, err := s.withTxn(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		before, after, err := s.applyBalanceDelta(sc, accountID, currency, -amount)
		if err != nil {
			return nil, err
		}
		tx := Transaction{
			ID: uuid.NewString(), AccountID: accountID, Type: txType, Currency: currency,
			Amount: amount, BalanceBefore: before, BalanceAfter: after,
			Description: description, Metadata: metadata, CreatedAt: time.Now(),
		}
		if err := s.insertTransaction(sc, tx); err != nil {
			return nil, err
		}
		return after, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

func (s *MongoStore) Credit(ctx context.Context, accountID string, currency Currency, amount int64, txType TxType, description string, metadata map[string]interface{}) (int64, error) {
	res, err := s.withTxn(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		before, after, err := s.applyBalanceDelta(sc, accountID, currency, amount)
		if err != nil {
			return nil, err
		}
		tx := Transaction{
			ID: uuid.NewString(), AccountID: accountID, Type: txType, Currency: currency,
			Amount: amount, BalanceBefore: before, BalanceAfter: after,
			Description: description, Metadata: metadata, CreatedAt: time.Now(),
		}
		if err := s.insertTransaction(sc, tx); err != nil {
			return nil, err
		}
		return after, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

type transferResult struct {
	fromBalance int64
	toBalance   int64
}

func (s *MongoStore) Transfer(ctx context.Context, fromID, toID string, currency Currency, amount int64, description string) (int64, int64, error) {
	res, err := s.withTxn(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		fromBefore, fromAfter, err := s.applyBalanceDelta(sc, fromID, currency, -amount)
		if err != nil {
			return nil, err
		}
		toBefore, toAfter, err := s.applyBalanceDelta(sc, toID, currency, amount)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		if err := s.insertTransaction(sc, Transaction{
			ID: uuid.NewString(), AccountID: fromID, Type: TxTransferOut, Currency: currency,
			Amount: amount, BalanceBefore: fromBefore, BalanceAfter: fromAfter, Description: description,
			Metadata: map[string]interface{}{"counterparty": toID}, CreatedAt: now,
		}); err != nil {
			return nil, err
		}
		if err := s.insertTransaction(sc, Transaction{
			ID: uuid.NewString(), AccountID: toID, Type: TxTransferIn, Currency: currency,
			Amount: amount, BalanceBefore: toBefore, BalanceAfter: toAfter, Description: description,
			Metadata: map[string]interface{}{"counterparty": fromID}, CreatedAt: now,
		}); err != nil {
			return nil, err
		}
		return transferResult{fromBalance: fromAfter, toBalance: toAfter}, nil
	})
	if err != nil {
		return 0, 0, err
	}
	tr := res.(transferResult)
	return tr.fromBalance, tr.toBalance, nil
}

func (s *MongoStore) Convert(ctx context.Context, accountID string, from, to Currency, fromAmount, toAmount int64, rateUsed float64) (map[Currency]int64, error) {
	res, err := s.withTxn(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		fromBefore, fromAfter, err := s.applyBalanceDelta(sc, accountID, from, -fromAmount)
		if err != nil {
			return nil, err
		}
		_, toAfter, err := s.applyBalanceDelta(sc, accountID, to, toAmount)
		if err != nil {
			return nil, err
		}

		if err := s.insertTransaction(sc, Transaction{
			ID: uuid.NewString(), AccountID: accountID, Type: TxConversion, Currency: from,
			Amount: fromAmount, BalanceBefore: fromBefore, BalanceAfter: fromAfter,
			Description: "currency conversion",
			Metadata: map[string]interface{}{
				"fromCurrency": string(from), "toCurrency": string(to),
				"fromAmount": fromAmount, "toAmount": toAmount, "rateUsed": rateUsed,
			},
			CreatedAt: time.Now(),
		}); err != nil {
			return nil, err
		}

		return map[Currency]int64{from: fromAfter, to: toAfter}, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(map[Currency]int64), nil
}
