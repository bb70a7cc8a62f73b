// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockstore

import (
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
)

// headKey is the leveldb key the current chain head's hash is stored
// under, in its own keyspace outside the hash-to-offset index.
var headKey = []byte("head")

// FileStore is an append-only 96-byte-record file of StoredBlocks, indexed
// by a goleveldb database mapping header hash to byte offset. The append
// file is the source of truth for block contents. Get looks blocks up only
// through the index and does not scan the file; a lost or empty index is
// not rebuilt automatically, only by an explicit RebuildIndex call. The
// chain-head pointer is stored only in the index, and RebuildIndex does
// not restore it.
type FileStore struct {
	mtx   sync.RWMutex
	file  *os.File
	index *leveldb.DB
}

// OpenFileStore opens (creating if needed) the append file at blockPath
// and the goleveldb index directory at indexPath.
func OpenFileStore(blockPath, indexPath string) (*FileStore, error) {
	f, err := os.OpenFile(blockPath, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}

	db, err := leveldb.OpenFile(indexPath, nil)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &FileStore{file: f, index: db}, nil
}

// Put appends block to the file (unless a byte-identical record already
// exists under its hash) and records its offset in the index.
func (s *FileStore) Put(block *StoredBlock) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	hash := block.Hash()

	if off, err := s.index.Get(hash[:], nil); err == nil {
		existing, readErr := s.readAt(int64(binary.BigEndian.Uint64(off)))
		if readErr != nil {
			return readErr
		}
		equal, cmpErr := recordsEqual(existing, block)
		if cmpErr != nil {
			return cmpErr
		}
		if !equal {
			return ErrConflict
		}
		return nil
	} else if err != leveldb.ErrNotFound {
		return err
	}

	encoded, err := EncodeCompact(block)
	if err != nil {
		return err
	}

	offset, err := s.file.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := s.file.Write(encoded); err != nil {
		return err
	}

	var offBytes [8]byte
	binary.BigEndian.PutUint64(offBytes[:], uint64(offset))
	return s.index.Put(hash[:], offBytes[:], nil)
}

func (s *FileStore) readAt(offset int64) (*StoredBlock, error) {
	buf := make([]byte, CompactSize)
	if _, err := s.file.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	return DecodeCompact(buf)
}

// Get returns the block stored under hash, or ErrNotFound.
func (s *FileStore) Get(hash chainhash.Hash) (*StoredBlock, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	off, err := s.index.Get(hash[:], nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	return s.readAt(int64(binary.BigEndian.Uint64(off)))
}

// GetChainHead returns the current head, or ErrNotFound if SetChainHead
// has never been called.
func (s *FileStore) GetChainHead() (*StoredBlock, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	hashBytes, err := s.index.Get(headKey, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	var hash chainhash.Hash
	copy(hash[:], hashBytes)

	off, err := s.index.Get(hash[:], nil)
	if err != nil {
		return nil, err
	}
	return s.readAt(int64(binary.BigEndian.Uint64(off)))
}

// SetChainHead records block's hash as the current head. It is atomic with
// respect to concurrent Get calls by virtue of the write lock held here
// and the read lock Get/GetChainHead take.
func (s *FileStore) SetChainHead(block *StoredBlock) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	hash := block.Hash()
	return s.index.Put(headKey, hash[:], nil)
}

// Close flushes and releases the append file and index database.
func (s *FileStore) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	indexErr := s.index.Close()
	fileErr := s.file.Close()
	if indexErr != nil {
		return indexErr
	}
	return fileErr
}

// RebuildIndex scans the append file from scratch and repopulates the
// hash-to-offset index, for recovery when the index directory is lost or
// corrupted but the append file survives.
func (s *FileStore) RebuildIndex() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	iter := s.index.NewIterator(nil, nil)
	for iter.Next() {
		if err := s.index.Delete(iter.Key(), nil); err != nil {
			iter.Release()
			return err
		}
	}
	iter.Release()

	info, err := s.file.Stat()
	if err != nil {
		return err
	}

	var offset int64
	for offset < info.Size() {
		block, err := s.readAt(offset)
		if err != nil {
			return err
		}
		hash := block.Hash()
		var offBytes [8]byte
		binary.BigEndian.PutUint64(offBytes[:], uint64(offset))
		if err := s.index.Put(hash[:], offBytes[:], nil); err != nil {
			return err
		}
		offset += CompactSize
	}

	return nil
}
