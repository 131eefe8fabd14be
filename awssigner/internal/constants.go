package awssigner

const AuthorizationHeader = "Authorization"

const doubleSpace = "  "

// TimeFormat is the time format to be used in the X-Amz-Date header
const TimeFormat = "20060102T150405Z"

const SigningAlgorithm = "AWS4-HMAC-SHA256"

// ShortTimeFormat is the shorten time format used in the credential scope
const ShortTimeFormat = "20060102"

const AmzDateKey = "X-Amz-Date"

// AmzSecurityTokenKey indicates the security token to be used with temporary credentials
const AmzSecurityTokenKey = "X-Amz-Security-Token"

// AmzContentSHA256Key carries the hex encoded hash of the request payload
const AmzContentSHA256Key = "X-Amz-Content-Sha256"

// EmptyBodySHA256 is the hex encoded sha256 value of an empty body
const EmptyBodySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
