package httpx

type Option func(*LoggingRoundTripper)

// WithLogFieldMaxLen обрезает дамп запроса и ответа в логе. 0 без ограничения.
func WithLogFieldMaxLen(n int) Option {
	return func(rt *LoggingRoundTripper) {
		rt.logFieldMaxLen = max(n, 0)
	}
}

// WithSensitiveDataMasker маскирует токены и пароли в дампах.
func WithSensitiveDataMasker(m sensitiveDataMasker) Option {
	return func(rt *LoggingRoundTripper) {
		if m != nil {
			rt.sensitiveDataMasker = m
		}
	}
}

// WithService подписывает записи лога именем внешнего сервиса.
func WithService(name string) Option {
	return func(rt *LoggingRoundTripper) {
		rt.service = name
	}
}
