// Package ifolio tracks an investment portfolio from its raw transaction
// log: it classifies transactions, maintains sparse weighted-average-cost
// snapshot and realized-gain series in a store, resolves closing prices
// through a two-tier cache, and values holdings as of any date.
//
// The transaction log is the single source of truth. Every derived series
// can be rebuilt from it by replay, and a backdated insertion triggers a
// replay of the affected suffix so history stays consistent.
package ifolio
