package constants

import "time"

const (
	StorageDefaultBucket   = "knight21-uploads"
	StorageSignedURLExpire = 3600 * time.Second
)

// 按扩展名推断下载时的 Content-Type
const (
	MIMEPDF   = "application/pdf"
	MIMEDoc   = "application/msword"
	MIMEDocx  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEOctet = "application/octet-stream"
)
