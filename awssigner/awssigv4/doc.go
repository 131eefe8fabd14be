/*
Package awssigv4 signs HTTP requests using the AWS signature version 4
mechanism. see https://docs.aws.amazon.com/IAM/latest/UserGuide/create-signed-request.html

The signer is pure: given a request, a credential set, a region, a service
name and a signing time, it always produces the same Authorization header.
The signing time is supplied by the caller, never read internally, which is
also what scopes a signature to one day/region/service: the derived signing
key chains the secret key through the short date, the region, the service
name and a fixed terminator, so a signature computed for one timestamp does
not verify against another.

Requests carrying a session token get an X-Amz-Security-Token header before
canonicalization so the token is part of the signed header set. Any
pre-existing Authorization, X-Amz-Date or X-Amz-Security-Token values are
replaced, never duplicated.
*/
package awssigv4
