package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/go-homedir"
)

const defaultDirName = ".crazypwm-cache"

var ErrNotInitialized = errors.New("cache: not initialized")

var lock sync.Mutex
var cache string

// Init prepares the cache directory. An empty dir selects ~/.crazypwm-cache.
func Init(dir string) error {
	if dir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return err
		}
		dir = filepath.Join(home, defaultDirName)
	}

	dir, err := homedir.Expand(dir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0777); err != nil {
		return err
	}

	lock.Lock()
	cache = dir
	lock.Unlock()
	return nil
}

// Dir returns the active cache directory, or "" before Init.
func Dir() string {
	lock.Lock()
	defer lock.Unlock()
	return cache
}

func path(crc uint32, kind string) (string, error) {
	dir := Dir()
	if dir == "" {
		return "", ErrNotInitialized
	}
	return filepath.Join(dir, fmt.Sprintf("%X.%s", crc, kind)), nil
}

func load(crc uint32, kind string, e interface{}) error {
	name, err := path(crc, kind)
	if err != nil {
		return err
	}

	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewDecoder(file).Decode(e)
}

func save(crc uint32, kind string, e interface{}) error {
	name, err := path(crc, kind)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(e)
}

func LoadParam(crc uint32, e interface{}) error {
	return load(crc, "paramcache", e)
}

func SaveParam(crc uint32, e interface{}) error {
	return save(crc, "paramcache", e)
}

func LoadLog(crc uint32, e interface{}) error {
	return load(crc, "logcache", e)
}

func SaveLog(crc uint32, e interface{}) error {
	return save(crc, "logcache", e)
}
