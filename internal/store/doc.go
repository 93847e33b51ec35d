// Package store is the entry store: durable diary entries plus live,
// date-ordered views of them.
//
// Open is called once by the application's composition root. It opens the
// database, applies the embedded goose migrations, seeds three example
// entries when the schema was just created, and returns a *Store that the
// caller passes to whatever needs it. There is no package-level instance.
//
// Every successful mutation re-runs the live queries and pushes the full,
// freshly ordered list to all subscribers of ListDescending and
// ListAscending. A new subscription always starts with the current contents.
//
// # Errors
//
// Failures of the backing medium are returned as *common.StorageFault
// (errors.Is(err, common.ErrStorageFault)). Update of an id that does not
// exist returns common.ErrorNotFound and notifies nobody.
package store
