// Package dataprocessing turns the ONS house-price-to-earnings workbook
// into the immutable dataset the dashboard serves.
//
// The pipeline is linear: load the two wide sheets (1a house price, 1b
// gross income), melt each into tidy observations, inner-join them on
// (code, name, year), sort by (name, year) and derive the year-over-year
// price change per region. Filtering and summary statistics operate on the
// resulting dataset without mutating it.
package dataprocessing
