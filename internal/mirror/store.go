// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package mirror

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key prefixes for BadgerDB storage
const (
	linkKeyPrefix   = "link:"
	deviceKeyPrefix = "device:"
)

// Sentinel errors for store lookups.
var (
	ErrLinkNotFound   = errors.New("mirror link not found")
	ErrDeviceNotFound = errors.New("device not found")
)

// Store persists mirror links and device stubs in BadgerDB. Links survive
// restarts so issued URLs keep working across deploys.
type Store struct {
	db *badger.DB
}

// NewStore creates a store on an open Badger database.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// PutLink writes a link record, overwriting any previous state for the token.
func (s *Store) PutLink(ctx context.Context, link Link) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("marshal link: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(linkKeyPrefix + link.Token)
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set link: %w", err)
		}
		return nil
	})
}

// GetLink retrieves a link by token. Returns ErrLinkNotFound if the token has
// never been issued or has been purged.
func (s *Store) GetLink(ctx context.Context, token string) (Link, error) {
	var link Link

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(linkKeyPrefix + token))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrLinkNotFound
		}
		if err != nil {
			return fmt.Errorf("get link: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &link)
		})
	})
	if err != nil {
		return Link{}, err
	}
	return link, nil
}

// DeleteExpiredBefore removes links whose expiry is before the cutoff and
// returns how many were purged. Revoked-but-unexpired links are kept; their
// records still answer revocation checks until expiry.
func (s *Store) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var expired []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(linkKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var link Link
				if err := json.Unmarshal(val, &link); err != nil {
					// Unreadable record; purge it with the expired batch.
					expired = append(expired, string(item.KeyCopy(nil)))
					return nil
				}
				if link.ExpiresAt.Before(cutoff) {
					expired = append(expired, linkKeyPrefix+link.Token)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan links: %w", err)
	}

	count := 0
	for _, key := range expired {
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete([]byte(key))
		})
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		count++
	}
	return count, nil
}

// PutDevice writes a device stub keyed by its Traccar device ID.
func (s *Store) PutDevice(ctx context.Context, dev Device) error {
	data, err := json.Marshal(dev)
	if err != nil {
		return fmt.Errorf("marshal device: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(deviceKeyPrefix + strconv.FormatInt(dev.TraccarDeviceID, 10))
		return txn.Set(key, data)
	})
}

// GetDeviceByTraccarID retrieves a device stub.
func (s *Store) GetDeviceByTraccarID(ctx context.Context, traccarID int64) (Device, error) {
	var dev Device

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(deviceKeyPrefix + strconv.FormatInt(traccarID, 10)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrDeviceNotFound
		}
		if err != nil {
			return fmt.Errorf("get device: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &dev)
		})
	})
	if err != nil {
		return Device{}, err
	}
	return dev, nil
}

// ListDevices returns all device stubs.
func (s *Store) ListDevices(ctx context.Context) ([]Device, error) {
	var devices []Device

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(deviceKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var dev Device
				if err := json.Unmarshal(val, &dev); err != nil {
					return fmt.Errorf("unmarshal device: %w", err)
				}
				devices = append(devices, dev)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan devices: %w", err)
	}
	return devices, nil
}

// DeleteDevice removes a device stub. Deleting an absent stub is a no-op.
func (s *Store) DeleteDevice(ctx context.Context, traccarID int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(deviceKeyPrefix + strconv.FormatInt(traccarID, 10))
		err := txn.Delete(key)
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete device: %w", err)
		}
		return nil
	})
}
