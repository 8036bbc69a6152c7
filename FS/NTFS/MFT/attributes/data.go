package attributes

type DATA struct {
	Content []byte
	Header  *AttributeHeader
}

func (data *DATA) SetHeader(header *AttributeHeader) {
	data.Header = header
}

func (data *DATA) Parse(datab []byte) error {
	data.Content = append([]byte(nil), datab...)
	return nil
}

func (data DATA) GetHeader() AttributeHeader {
	return *data.Header
}

func (data DATA) FindType() string {
	return data.Header.GetType()
}

func (data DATA) IsNoNResident() bool {
	return data.Header.IsNoNResident()
}

// IsPrimary tells the unnamed stream apart from alternate data streams.
func (data DATA) IsPrimary() bool {
	return data.Header.GetName() == ""
}

// Unknown keeps attributes without a typed decoder.
type Unknown struct {
	Content []byte
	Header  *AttributeHeader
}

func (unknown *Unknown) SetHeader(header *AttributeHeader) {
	unknown.Header = header
}

func (unknown *Unknown) Parse(datab []byte) error {
	unknown.Content = append([]byte(nil), datab...)
	return nil
}

func (unknown Unknown) GetHeader() AttributeHeader {
	return *unknown.Header
}

func (unknown Unknown) FindType() string {
	return unknown.Header.GetType()
}

func (unknown Unknown) IsNoNResident() bool {
	return unknown.Header.IsNoNResident()
}
