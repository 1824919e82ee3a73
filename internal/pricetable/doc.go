// Package pricetable assembles the canonical price table.
//
// The Builder reads the asset catalog, fetches every asset class
// concurrently from its RateFetcher, and joins the results into one
// model.PriceTable. A single failing class fails the whole build; no
// partial table is ever returned.
package pricetable
