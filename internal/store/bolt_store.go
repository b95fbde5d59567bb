package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"
)

const subscriptionBucket = "subscriptions"

// boltStore implements a Store backed by BoltDB. Values are JSON encoded
// subscriptions keyed by flow name.
type boltStore struct {
	db *bolt.DB
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(subscriptionBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *boltStore) Get(flow string) (Subscription, error) {
	var sub Subscription
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := subscriptions(tx)
		if err != nil {
			return err
		}
		value := bucket.Get([]byte(flow))
		if value == nil {
			return fmt.Errorf("%w: flow %q", ErrNotFound, flow)
		}
		return decode(value, &sub)
	})
	return sub, err
}

func (b *boltStore) Put(sub Subscription) error {
	if sub.Flow == "" {
		return fmt.Errorf("subscription has no flow")
	}
	value, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode subscription: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := subscriptions(tx)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(sub.Flow), value)
	})
}

func (b *boltStore) Delete(flow string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := subscriptions(tx)
		if err != nil {
			return err
		}
		return bucket.Delete([]byte(flow))
	})
}

// List returns every subscription in flow name order, the bucket's key order.
func (b *boltStore) List() ([]Subscription, error) {
	var subs []Subscription
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := subscriptions(tx)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(_, v []byte) error {
			var sub Subscription
			if err := decode(v, &sub); err != nil {
				return err
			}
			subs = append(subs, sub)
			return nil
		})
	})
	return subs, err
}

func (b *boltStore) FindByWebhookID(id string) (Subscription, error) {
	subs, err := b.List()
	if err != nil {
		return Subscription{}, err
	}
	for _, sub := range subs {
		if sub.WebhookID == id {
			return sub, nil
		}
	}
	return Subscription{}, fmt.Errorf("%w: webhook %q", ErrNotFound, id)
}

func subscriptions(tx *bolt.Tx) (*bolt.Bucket, error) {
	bucket := tx.Bucket([]byte(subscriptionBucket))
	if bucket == nil {
		return nil, fmt.Errorf("subscription bucket missing")
	}
	return bucket, nil
}

func decode(value []byte, sub *Subscription) error {
	if err := json.Unmarshal(value, sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}
	return nil
}
