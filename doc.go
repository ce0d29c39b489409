// Package main provides the entry point for the HomelabWiki backend.
// It runs a JSON API server using the Fiber framework that lets
// authenticated users create, edit, tag, search and export Markdown pages
// and attach files. Authentication is delegated to an LDAP/Active Directory
// server; group memberships are mapped onto local permission flags and
// cached on a persisted user record via gorm.
package main
