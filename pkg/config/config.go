// Package config selects a backing store for configuration documents,
// either a local YAML file or a MongoDB collection.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AndrewPiroli/NOS-MCT/pkg/config/configstore"
	"github.com/AndrewPiroli/NOS-MCT/pkg/config/filestore"
	"github.com/AndrewPiroli/NOS-MCT/pkg/config/mongostore"
)

type StoreType int

const (
	FileStore StoreType = iota
	MongoStore
)

var ErrInvalidStoreType = errors.New("invalid store type")

// Config combines all store capabilities.
type Config interface {
	configstore.ConfigStore
	Watch(onChange func()) error // optional for stores that support watching
}

type FileConfig struct {
	Path string `yaml:"path" json:"path"`
}

type MongoConfig struct {
	URI      string `yaml:"uri" json:"uri"`
	DBName   string `yaml:"dbName" json:"dbName"`
	CollName string `yaml:"collName" json:"collName"`
	ID       string `yaml:"id" json:"id"` // document ID
}

func NewStore(storeType StoreType, cfg any) (Config, error) {
	switch storeType {
	case FileStore:
		fileCfg, ok := cfg.(*FileConfig)
		if !ok {
			return nil, fmt.Errorf("invalid config type for file store, expected *FileConfig")
		}
		return filestore.New(fileCfg.Path), nil
	case MongoStore:
		mongoCfg, ok := cfg.(*MongoConfig)
		if !ok {
			return nil, fmt.Errorf("invalid config type for mongo store, expected *MongoConfig")
		}
		return mongostore.New(mongoCfg.URI, mongoCfg.DBName, mongoCfg.CollName, mongoCfg.ID)
	default:
		return nil, ErrInvalidStoreType
	}
}

// FromLocation picks a store from a location string: a mongodb:// URI
// selects the Mongo store with the given document id, anything else is a
// YAML file path.
func FromLocation(location, id string) (Config, error) {
	if strings.HasPrefix(location, "mongodb://") || strings.HasPrefix(location, "mongodb+srv://") {
		return NewStore(MongoStore, &MongoConfig{
			URI:      location,
			DBName:   "nosmct",
			CollName: "configs",
			ID:       id,
		})
	}
	return NewStore(FileStore, &FileConfig{Path: location})
}
