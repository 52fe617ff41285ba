package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Streuli81/LostTrack/config"
	"github.com/Streuli81/LostTrack/generic"
	memstore "github.com/Streuli81/LostTrack/generic/store"
	badgerstore "github.com/Streuli81/LostTrack/store/badger"
	redisstore "github.com/Streuli81/LostTrack/store/redis"
	"github.com/Streuli81/LostTrack/store/sqlite"
)

// closableStore is a TxStore that owns a connection or file handle.
type closableStore interface {
	generic.TxStore
	Close() error
}

// memory adds a no-op Close to the in-process store.
type memory struct {
	*memstore.TxMemory
}

func (memory) Close() error { return nil }

// openStore opens the backend selected by cfg.Driver.
func openStore(ctx context.Context, cfg config.StoreConfig, log logrus.FieldLogger) (closableStore, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn("memory store: data is lost on exit")
		return memory{memstore.NewTxMemory()}, nil
	case config.DriverSQLite:
		return sqlite.New(cfg.Path)
	case config.DriverBadger:
		bc := badgerstore.DefaultConfig(cfg.Path)
		bc.Logger = log.WithField("module", "store.badger")
		return badgerstore.Open(bc)
	case config.DriverRedis:
		rc := redisstore.DefaultConfig(cfg.RedisAddr)
		rc.Password = cfg.RedisPassword
		rc.DB = cfg.RedisDB
		return redisstore.New(ctx, rc, log)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
