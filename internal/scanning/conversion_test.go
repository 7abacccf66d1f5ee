package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testImageBytes(encode func(*bytes.Buffer, image.Image) error) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	Expect(encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("MediaTypeForPath", func() {
	It("maps known extensions", func() {
		Expect(MediaTypeForPath("receipt.png")).To(Equal("image/png"))
		Expect(MediaTypeForPath("receipt.GIF")).To(Equal("image/gif"))
		Expect(MediaTypeForPath("receipt.webp")).To(Equal("image/webp"))
		Expect(MediaTypeForPath("invoice.pdf")).To(Equal("application/pdf"))
		Expect(MediaTypeForPath("IMG_0001.HEIC")).To(Equal("image/heic"))
		Expect(MediaTypeForPath("IMG_0001.heif")).To(Equal("image/heif"))
	})

	It("defaults to JPEG", func() {
		Expect(MediaTypeForPath("receipt.jpg")).To(Equal("image/jpeg"))
		Expect(MediaTypeForPath("receipt")).To(Equal("image/jpeg"))
		Expect(MediaTypeForPath("scan.tiff")).To(Equal("image/jpeg"))
	})
})

var _ = Describe("prepareImageData", func() {
	When("the input is already PNG", func() {
		It("returns the data unchanged", func() {
			pngData := testImageBytes(func(buf *bytes.Buffer, img image.Image) error {
				return png.Encode(buf, img)
			})

			data, mimeType, converted, err := prepareImageData(pngData, "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal(pngData))
			Expect(mimeType).To(Equal("image/png"))
			Expect(converted).To(BeFalse())
		})
	})

	When("the input is JPEG", func() {
		It("converts to PNG", func() {
			jpegData := testImageBytes(func(buf *bytes.Buffer, img image.Image) error {
				return jpeg.Encode(buf, img, nil)
			})

			data, mimeType, converted, err := prepareImageData(jpegData, "image/jpeg")
			Expect(err).NotTo(HaveOccurred())
			Expect(mimeType).To(Equal("image/png"))
			Expect(converted).To(BeTrue())

			_, format, err := image.Decode(bytes.NewReader(data))
			Expect(err).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
		})
	})

	When("the content type is empty", func() {
		It("defaults to JPEG and still converts", func() {
			jpegData := testImageBytes(func(buf *bytes.Buffer, img image.Image) error {
				return jpeg.Encode(buf, img, nil)
			})

			_, mimeType, converted, err := prepareImageData(jpegData, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(mimeType).To(Equal("image/png"))
			Expect(converted).To(BeTrue())
		})
	})

	When("the data is not an image at all", func() {
		It("returns an error", func() {
			_, _, _, err := prepareImageData([]byte("definitely not an image"), "image/jpeg")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("isHEICFormat", func() {
	It("recognizes an ftyp box with a heic brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic        ")...)
		Expect(isHEICFormat(data)).To(BeTrue())
	})

	It("rejects other containers", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypisom        ")...)
		Expect(isHEICFormat(data)).To(BeFalse())
		Expect(isHEICFormat([]byte("short"))).To(BeFalse())
	})
})
