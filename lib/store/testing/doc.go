// Package testing provides a reusable test suite for store.IStore implementations.
//
// Usage:
//
//	func TestLocalStore(t *testing.T) {
//		storetesting.RunIStoreTests(t, "lstore", func() store.IStore {
//			return lstore.NewLocalStore(nil)
//		})
//	}
//
// Every sub test gets a fresh store from the factory and closes it afterwards if
// it implements io.Closer.
package testing
