package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"grounder/internal/domain"
)

var (
	bucketDocs        = []byte("docs")
	bucketPassages    = []byte("passages")
	bucketBlobs       = []byte("blobs")
	bucketTerms       = []byte("terms")
	bucketStats       = []byte("stats")
	bucketDocPassages = []byte("doc_passages")
	bucketPages       = []byte("pages")
	keyStats          = []byte("index_stats")
)

// BoltStore persists the local evidence index and the fetched page cache
// in a single bbolt file.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketDocs, bucketPassages, bucketBlobs, bucketTerms, bucketStats, bucketDocPassages, bucketPages}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

type docMeta struct {
	Path    string `json:"path"`
	ModTime int64  `json:"mod_time"`
}

type passageMeta struct {
	DocID  string   `json:"doc_id"`
	Tokens []string `json:"tokens"`
}

func (s *BoltStore) PutDoc(doc domain.Document) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(docMeta{Path: doc.Path, ModTime: doc.ModTime})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketDocs).Put([]byte(doc.ID), data)
	})
}

func (s *BoltStore) GetDoc(id string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("document not found: %s", id)
		}
		var meta docMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		doc = domain.Document{ID: id, Path: meta.Path, ModTime: meta.ModTime}
		return nil
	})
	return doc, err
}

func (s *BoltStore) ListDocs() ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocs)
		return b.ForEach(func(k, v []byte) error {
			var meta docMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			docs = append(docs, domain.Document{
				ID:      string(k),
				Path:    meta.Path,
				ModTime: meta.ModTime,
			})
			return nil
		})
	})
	return docs, err
}

func (s *BoltStore) GetPassage(id string) (domain.StoredPassage, error) {
	var passage domain.StoredPassage
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketPassages).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("passage not found: %s", id)
		}
		var meta passageMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		text := tx.Bucket(bucketBlobs).Get([]byte(id))
		passage = domain.StoredPassage{
			ID:     id,
			DocID:  meta.DocID,
			Tokens: meta.Tokens,
			Text:   string(text),
		}
		return nil
	})
	return passage, err
}

func (s *BoltStore) GetPassagesByDoc(docID string) ([]domain.StoredPassage, error) {
	var passages []domain.StoredPassage
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocPassages).Get([]byte(docID))
		if data == nil {
			return nil
		}
		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			return err
		}
		passageBucket := tx.Bucket(bucketPassages)
		blobBucket := tx.Bucket(bucketBlobs)
		for _, id := range ids {
			data := passageBucket.Get([]byte(id))
			if data == nil {
				continue
			}
			var meta passageMeta
			if err := json.Unmarshal(data, &meta); err != nil {
				continue
			}
			text := blobBucket.Get([]byte(id))
			passages = append(passages, domain.StoredPassage{
				ID:     id,
				DocID:  meta.DocID,
				Tokens: meta.Tokens,
				Text:   string(text),
			})
		}
		return nil
	})
	return passages, err
}

// DeleteDoc removes a document, its passages, their blobs and every
// posting referencing them.
func (s *BoltStore) DeleteDoc(docID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		docPassages := tx.Bucket(bucketDocPassages)
		data := docPassages.Get([]byte(docID))
		if data != nil {
			var ids []string
			if err := json.Unmarshal(data, &ids); err != nil {
				return err
			}
			removed := make(map[string]struct{}, len(ids))
			passageBucket := tx.Bucket(bucketPassages)
			blobBucket := tx.Bucket(bucketBlobs)
			for _, id := range ids {
				passageBucket.Delete([]byte(id))
				blobBucket.Delete([]byte(id))
				removed[id] = struct{}{}
			}
			if err := prunePostings(tx.Bucket(bucketTerms), removed); err != nil {
				return err
			}
			if err := docPassages.Delete([]byte(docID)); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketDocs).Delete([]byte(docID))
	})
}

func prunePostings(terms *bbolt.Bucket, removed map[string]struct{}) error {
	type update struct {
		term string
		data []byte // nil means delete
	}
	var updates []update
	err := terms.ForEach(func(k, v []byte) error {
		var postings []domain.Posting
		if err := json.Unmarshal(v, &postings); err != nil {
			return nil
		}
		filtered := make([]domain.Posting, 0, len(postings))
		for _, p := range postings {
			if _, gone := removed[p.PassageID]; !gone {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) == len(postings) {
			return nil
		}
		if len(filtered) == 0 {
			updates = append(updates, update{term: string(k)})
			return nil
		}
		data, err := json.Marshal(filtered)
		if err != nil {
			return err
		}
		updates = append(updates, update{term: string(k), data: data})
		return nil
	})
	if err != nil {
		return err
	}
	for _, u := range updates {
		if u.data == nil {
			if err := terms.Delete([]byte(u.term)); err != nil {
				return err
			}
			continue
		}
		if err := terms.Put([]byte(u.term), u.data); err != nil {
			return err
		}
	}
	return nil
}

func (s *BoltStore) GetPostings(term string) ([]domain.Posting, error) {
	var postings []domain.Posting
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketTerms).Get([]byte(term))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &postings)
	})
	return postings, err
}

func (s *BoltStore) GetStats() (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStats).Get(keyStats)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &stats)
	})
	return stats, err
}

func (s *BoltStore) UpdateStats(stats domain.Stats) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketStats).Put(keyStats, data)
	})
}

// IngestedFile groups everything derived from one source file so a batch
// can be written in a single transaction.
type IngestedFile struct {
	Doc      domain.Document
	Passages []domain.StoredPassage
	Postings map[string]map[string]int
}

func (s *BoltStore) BatchIngest(files []IngestedFile) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		docsBucket := tx.Bucket(bucketDocs)
		passagesBucket := tx.Bucket(bucketPassages)
		blobsBucket := tx.Bucket(bucketBlobs)
		docPassagesBucket := tx.Bucket(bucketDocPassages)
		termsBucket := tx.Bucket(bucketTerms)

		allPostings := make(map[string][]domain.Posting)

		for _, file := range files {
			data, err := json.Marshal(docMeta{Path: file.Doc.Path, ModTime: file.Doc.ModTime})
			if err != nil {
				return err
			}
			if err := docsBucket.Put([]byte(file.Doc.ID), data); err != nil {
				return err
			}

			passageIDs := make([]string, 0, len(file.Passages))
			for _, passage := range file.Passages {
				data, err := json.Marshal(passageMeta{DocID: passage.DocID, Tokens: passage.Tokens})
				if err != nil {
					return err
				}
				if err := passagesBucket.Put([]byte(passage.ID), data); err != nil {
					return err
				}
				if err := blobsBucket.Put([]byte(passage.ID), []byte(passage.Text)); err != nil {
					return err
				}
				passageIDs = append(passageIDs, passage.ID)
			}

			idsData, _ := json.Marshal(passageIDs)
			if err := docPassagesBucket.Put([]byte(file.Doc.ID), idsData); err != nil {
				return err
			}

			for term, passageTFs := range file.Postings {
				for passageID, tf := range passageTFs {
					allPostings[term] = append(allPostings[term], domain.Posting{
						PassageID: passageID,
						TF:        tf,
					})
				}
			}
		}

		for term, newPostings := range allPostings {
			var existing []domain.Posting
			if data := termsBucket.Get([]byte(term)); data != nil {
				json.Unmarshal(data, &existing)
			}
			existing = append(existing, newPostings...)
			data, err := json.Marshal(existing)
			if err != nil {
				return err
			}
			if err := termsBucket.Put([]byte(term), data); err != nil {
				return err
			}
		}

		return nil
	})
}

// GetPage returns a previously fetched page from the page cache.
func (s *BoltStore) GetPage(url string) (domain.CachedPage, bool, error) {
	var page domain.CachedPage
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketPages).Get([]byte(url))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &page); err != nil {
			return err
		}
		found = true
		return nil
	})
	return page, found, err
}

// PutPage stores an extracted page keyed by URL.
func (s *BoltStore) PutPage(page domain.CachedPage) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(page)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketPages).Put([]byte(page.URL), data)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
