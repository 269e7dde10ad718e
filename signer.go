package sri

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"os"
	"time"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"
	"software.sslmate.com/src/go-pkcs12"
)

// Certificate bundles the decoded signing key material loaded from a
// PKCS#12 (.p12/.pfx) file, mirroring firma_digital.py's
// FirmaDigital._cargar_certificado.
type Certificate struct {
	PrivateKey  *rsa.PrivateKey
	Certificate *x509.Certificate
}

// LoadCertificate reads and decodes a PKCS#12 file, checking both the
// password and the certificate's expiry the way
// firma_digital.py's _cargar_certificado and _validar_vencimiento do.
func LoadCertificate(path, password string) (*Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newError(KindCertificateNotFound, false, err, "certificate file %s not found", path)
		}
		return nil, newError(KindCertificateNotFound, false, err, "reading certificate file %s", path)
	}

	key, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, newError(KindWrongPassword, false, err, "decoding pkcs12 file %s", path)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, newError(KindSigningFailed, false, nil, "certificate private key is not RSA")
	}

	if time.Now().After(cert.NotAfter) {
		return nil, newError(KindCertificateExpired, false, nil, "certificate expired on %s", cert.NotAfter.Format(time.RFC3339))
	}

	return &Certificate{PrivateKey: rsaKey, Certificate: cert}, nil
}

const (
	xadesC14NAlgorithm  = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	xadesSignatureAlgo  = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	xadesDigestAlgo     = "http://www.w3.org/2000/09/xmldsig#sha1"
	xadesEnvelopedXform = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)

// SignXML signs doc.XMLBuilt in place, producing an enveloped XAdES-BES
// signature, and stores the result in doc.XMLSigned. Ported from
// firma_digital.py's firmar_xml/_crear_template_firma: canonicalize and
// digest the document before the Signature template is attached (the
// enveloped transform excludes ds:Signature from the digested
// node-set, matching xmlsec's behavior), then build the Signature
// template around that digest and RSA-sign the canonicalized
// SignedInfo block.
func SignXML(doc *Document, cert *Certificate) error {
	etreeDoc := etree.NewDocument()
	if err := etreeDoc.ReadFromBytes(doc.XMLBuilt); err != nil {
		return newError(KindSigningFailed, false, err, "parsing built xml before signing")
	}
	root := etreeDoc.Root()
	if root == nil {
		return newError(KindSigningFailed, false, nil, "built xml has no root element")
	}

	// Digest over the document as it stands before the Signature element
	// is attached: the enveloped-signature transform strips ds:Signature
	// from the digested node-set, and the only node-set that never
	// contained it is the one captured here, prior to CreateElement.
	docBytes, err := canonicalize(etreeDoc)
	if err != nil {
		return newError(KindSigningFailed, false, err, "canonicalizing document for digest")
	}
	digest := sha1.Sum(docBytes)

	sig := root.CreateElement("ds:Signature")
	sig.CreateAttr("xmlns:ds", "http://www.w3.org/2000/09/xmldsig#")
	sig.CreateAttr("Id", "Signature")

	signedInfo := sig.CreateElement("ds:SignedInfo")
	signedInfo.CreateElement("ds:CanonicalizationMethod").CreateAttr("Algorithm", xadesC14NAlgorithm)
	signedInfo.CreateElement("ds:SignatureMethod").CreateAttr("Algorithm", xadesSignatureAlgo)

	reference := signedInfo.CreateElement("ds:Reference")
	reference.CreateAttr("URI", "")
	transforms := reference.CreateElement("ds:Transforms")
	transforms.CreateElement("ds:Transform").CreateAttr("Algorithm", xadesEnvelopedXform)
	transforms.CreateElement("ds:Transform").CreateAttr("Algorithm", xadesC14NAlgorithm)
	reference.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", xadesDigestAlgo)
	digestValueElt := reference.CreateElement("ds:DigestValue")
	digestValueElt.SetText(base64.StdEncoding.EncodeToString(digest[:]))

	signatureValueElt := sig.CreateElement("ds:SignatureValue")

	keyInfo := sig.CreateElement("ds:KeyInfo")
	x509Data := keyInfo.CreateElement("ds:X509Data")
	x509Data.CreateElement("ds:X509Certificate").SetText(base64.StdEncoding.EncodeToString(cert.Certificate.Raw))

	signedInfoBytes, err := canonicalizeElement(signedInfo)
	if err != nil {
		return newError(KindSigningFailed, false, err, "canonicalizing SignedInfo")
	}
	signedInfoDigest := sha1.Sum(signedInfoBytes)
	signature, err := rsa.SignPKCS1v15(nil, cert.PrivateKey, crypto.SHA1, signedInfoDigest[:])
	if err != nil {
		return newError(KindSigningFailed, false, err, "rsa-sha1 signing SignedInfo")
	}
	signatureValueElt.SetText(base64.StdEncoding.EncodeToString(signature))

	var buf []byte
	buf, err = etreeDoc.WriteToBytes()
	if err != nil {
		return newError(KindSigningFailed, false, err, "serializing signed xml")
	}

	doc.XMLSigned = buf
	doc.State = StateSigned
	return nil
}

// canonicalize renders the whole document per xml-c14n-20010315.
func canonicalize(doc *etree.Document) ([]byte, error) {
	return c14n.Canonicalize(doc)
}

// canonicalizeElement renders one element subtree per xml-c14n-20010315
// by wrapping it in a throwaway document, mirroring how xmlsec computes
// the SignedInfo digest over just that element.
func canonicalizeElement(el *etree.Element) ([]byte, error) {
	wrap := etree.NewDocument()
	wrap.SetRoot(el.Copy())
	return c14n.Canonicalize(wrap)
}
