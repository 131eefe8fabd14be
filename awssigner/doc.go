/*
Package awssigner adds AWS IAM request signing to the connector's OpenSearch
client. Every outbound request is intercepted, credentials are resolved
(cached per provider policy), the request is canonicalized and signed with
signature version 4, and the signing headers are spliced into the live
request before it proceeds to the transport.

The interceptor is the only component with I/O; canonicalization and signing
live in the pure awssigv4 package, credential and region resolution in the
credentials package.
*/
package awssigner
