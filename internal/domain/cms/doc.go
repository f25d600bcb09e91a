// Package cms holds the content management side of the sync: the entity
// types mirrored into the CMS, the shape of CMS entries, the client port and
// the error taxonomy shared by the adapter and the reconciliation service.
package cms
