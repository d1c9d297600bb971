// Package report renders narrative reports for people and for machines.
//
// Render writes a report as plain text, JSON or YAML; Save writes it to a
// file named after the concept and the generation time.
package report
