// Package corpus stores raw training texts in a SQL database (SQLite in
// practice) and hands their token sequences to the markov package.
package corpus
