// Package document defines the typed values, fields and documents that are
// written into a search index.
//
// Every field carries one of a closed set of field types. A value is only
// accepted when its Go type matches the declared type exactly; there is no
// widening, so a Long field refuses an int32 and every field refuses a plain
// int. Validate is the single gate enforcing this.
//
// A Document is keyed by a mandatory identifier which is stored under the
// reserved IDField name. Field names are case-insensitive.
//
// Example:
//
//	doc, err := document.New("sku-42")
//	if err != nil {
//		return err
//	}
//	if err := doc.SetString("title", "Blue Kettle", document.Store|document.Analyze); err != nil {
//		return err
//	}
//	if err := doc.SetLong("stock", 12, document.Store); err != nil {
//		return err
//	}
package document
