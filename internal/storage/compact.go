package storage

import "go.etcd.io/bbolt"

// bboltCompact copies every bucket and key/value pair from src into dst,
// the standard "walk and rewrite" compaction idiom for bbolt: because
// bbolt never reclaims freelist pages from deleted keys within the live
// file, compaction is performed by writing a fresh file rather than an
// in-place vacuum.
func bboltCompact(dst, src *bbolt.DB) error {
	return src.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bbolt.Bucket) error {
			return dst.Update(func(dtx *bbolt.Tx) error {
				dstBucket, err := dtx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return copyBucket(b, dstBucket)
			})
		})
	})
}

func copyBucket(src, dst *bbolt.Bucket) error {
	return src.ForEach(func(k, v []byte) error {
		if v == nil {
			// Nested bucket; not used by this store's schema, but
			// handled for completeness.
			nested := src.Bucket(k)
			nestedDst, err := dst.CreateBucketIfNotExists(k)
			if err != nil {
				return err
			}
			return copyBucket(nested, nestedDst)
		}
		return dst.Put(k, v)
	})
}
