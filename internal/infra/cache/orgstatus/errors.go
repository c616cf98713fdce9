package orgstatus

import "errors"

var (
	// ErrCacheMiss возвращается, когда ключ отсутствует в кэше
	ErrCacheMiss = errors.New("orgstatus cache: key not found")
)
