// Package export renders a user's notes jobs as an XLSX workbook.
package export
