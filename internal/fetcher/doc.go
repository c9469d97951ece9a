// Package fetcher runs the BPT query against the SDSS CasJobs REST API and
// decodes the CSV reply into a types.Table.
//
// Fetch issues exactly one GET with the "query" and "format=csv" parameters.
// Connection errors, timeouts, bodies cut off mid-transfer and non-2xx
// replies are reported on Result.Err
// rather than returned, mirroring how a failed scrape still yields a result:
// the pipeline reads that as "no data" and stops before classifying.
//
// The wire contract lives in decode.go behind the Decoder interface. CasJobs
// puts a row of SQL type names on line 2, which CSVDecoder drops before
// reading the table. A row with fewer fields than the header is padded
// with empty (NaN) cells; a row with more fields is an error.
package fetcher
